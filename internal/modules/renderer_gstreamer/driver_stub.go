//go:build !gstreamer

package renderergstreamer

import "errors"

// newLauncher fails when the gstreamer build tag is not enabled.
func newLauncher() (launcher, error) {
	return nil, errors.New("gstreamer build tag not enabled")
}
