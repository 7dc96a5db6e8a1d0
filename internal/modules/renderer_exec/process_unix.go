//go:build unix

package rendererexec

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
)

// osProcess is a child started in its own process group so signals reach
// every helper a browser forks.
type osProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

func spawnProcess(log *zap.Logger, args []string) (process, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, errors.New("empty command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &osProcess{cmd: cmd, exited: make(chan struct{})}
	plog := log.With(zap.String("command", args[0]), zap.Int("pid", cmd.Process.Pid))
	go logLines(plog, "stdout", stdout)
	go logLines(plog, "stderr", stderr)
	go func() {
		err := cmd.Wait()
		plog.Debug("renderer process exited", zap.Error(err))
		close(p.exited)
	}()
	return p, nil
}

func (p *osProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Suspend() error   { return p.signal(syscall.SIGSTOP) }
func (p *osProcess) Continue() error  { return p.signal(syscall.SIGCONT) }
func (p *osProcess) Terminate() error { return p.signal(syscall.SIGTERM) }
func (p *osProcess) Kill() error      { return p.signal(syscall.SIGKILL) }

func (p *osProcess) signal(sig syscall.Signal) error {
	err := syscall.Kill(-p.cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

func (p *osProcess) Exited() <-chan struct{} {
	return p.exited
}

func logLines(log *zap.Logger, stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Debug("renderer output", zap.String("stream", stream), zap.String("line", scanner.Text()))
	}
}
