package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorForReplyCode(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"INVALID", ExitUsage},
		{"UNSUPPORTED", ExitUsage},
		{"UNAVAILABLE", ExitRuntime},
		{"INTERNAL", ExitRuntime},
		{"UNKNOWN", ExitRuntime},
	}

	for _, test := range tests {
		err := ErrorForReplyCode(test.code, "message")
		if err.Code != test.expected {
			t.Fatalf("code %s expected %d got %d", test.code, test.expected, err.Code)
		}
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != ExitOK {
		t.Fatalf("nil should be ok")
	}
	if ExitCode(errors.New("boom")) != ExitRuntime {
		t.Fatalf("plain errors are runtime failures")
	}
	wrapped := fmt.Errorf("pause: %w", &CLIError{Code: ExitRejected, Msg: "rejected"})
	if ExitCode(wrapped) != ExitRejected {
		t.Fatalf("wrapped CLIError should keep its code")
	}
}
