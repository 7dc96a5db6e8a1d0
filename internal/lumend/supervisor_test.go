package lumend

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSupervisorRunsModules(t *testing.T) {
	supervisor := Supervisor{Logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 1)
	modules := []ModuleRunner{
		{
			Name: "test",
			Run: func(ctx context.Context) error {
				started <- struct{}{}
				<-ctx.Done()
				return nil
			},
		},
	}

	go func() {
		<-started
		cancel()
	}()

	if err := supervisor.Run(ctx, modules); err != nil {
		t.Fatalf("supervisor run: %v", err)
	}
}

func TestSupervisorPropagatesErrors(t *testing.T) {
	supervisor := Supervisor{Logger: zap.NewNop()}

	stopped := make(chan struct{})
	modules := []ModuleRunner{
		{
			Name: "fail",
			Run: func(ctx context.Context) error {
				return errors.New("boom")
			},
		},
		{
			Name: "other",
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				close(stopped)
				return nil
			},
		},
	}

	err := supervisor.Run(context.Background(), modules)
	if err == nil {
		t.Fatalf("expected error")
	}
	select {
	case <-stopped:
	default:
		t.Fatalf("failure should stop the other modules before returning")
	}
}

func TestSupervisorOptionalFailure(t *testing.T) {
	supervisor := Supervisor{Logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	modules := []ModuleRunner{
		{
			Name:     "dbus",
			Optional: true,
			Run: func(ctx context.Context) error {
				return errors.New("no session bus")
			},
		},
		{
			Name: "host",
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		},
	}

	if err := supervisor.Run(ctx, modules); err != nil {
		t.Fatalf("optional failure should not stop the supervisor: %v", err)
	}
}

func TestSupervisorNoModules(t *testing.T) {
	supervisor := Supervisor{Logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := supervisor.Run(ctx, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: "stderr", UTC: true})
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug enabled")
	}
	logger = NewLogger(LogConfig{Level: "warn"})
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info should be filtered at warn")
	}
}
