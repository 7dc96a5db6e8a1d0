//go:build !unix

package rendererexec

import (
	"errors"

	"go.uber.org/zap"
)

func spawnProcess(log *zap.Logger, args []string) (process, error) {
	return nil, errors.New("process renderers require a unix platform")
}
