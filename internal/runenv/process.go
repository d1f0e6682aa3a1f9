package runenv

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// StopTimeout is how long Stop waits after SIGTERM before sending SIGKILL.
var StopTimeout = 5 * time.Second

// ProcessRunner runs a child that can be stopped and started again with a
// new environment, as run --watch does on every reload.
type ProcessRunner struct {
	Command  string
	Args     []string
	Env      map[string]string
	Workdir  string
	Redactor *Redactor

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	cmd     *exec.Cmd
	copying sync.WaitGroup
	done    chan struct{}
	waitErr error
}

func (r *ProcessRunner) streams() (io.Writer, io.Writer) {
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func (r *ProcessRunner) Start() error {
	r.cmd = exec.Command(r.Command, r.Args...)
	r.cmd.Env = Environ(r.Env)
	r.cmd.Stdin = os.Stdin
	if r.Workdir != "" {
		r.cmd.Dir = r.Workdir
	}
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, stderr := r.streams()
	if r.Redactor == nil {
		r.cmd.Stdout = stdout
		r.cmd.Stderr = stderr
		if err := r.cmd.Start(); err != nil {
			return err
		}
		r.waitInBackground()
		return nil
	}

	outR, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errR, err := r.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := r.cmd.Start(); err != nil {
		return err
	}
	r.copying.Add(2)
	go r.redact(stdout, outR)
	go r.redact(stderr, errR)
	r.waitInBackground()
	return nil
}

// waitInBackground reaps the child exactly once. Output copying must
// finish before cmd.Wait closes the pipes.
func (r *ProcessRunner) waitInBackground() {
	done := make(chan struct{})
	r.done = done
	cmd := r.cmd
	go func() {
		r.copying.Wait()
		r.waitErr = cmd.Wait()
		close(done)
	}()
}

func (r *ProcessRunner) redact(dst io.Writer, src io.Reader) {
	defer r.copying.Done()
	copyRedacted(dst, src, r.Redactor)
}

// copyRedacted copies line by line so that a secret is never split across
// two reads. A trailing partial line is flushed at EOF.
func copyRedacted(dst io.Writer, src io.Reader, r *Redactor) {
	buf := make([]byte, 4096)
	var pending strings.Builder
	for {
		n, err := src.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			text := pending.String()
			if i := strings.LastIndexByte(text, '\n'); i >= 0 {
				_, _ = io.WriteString(dst, r.Redact(text[:i+1]))
				pending.Reset()
				pending.WriteString(text[i+1:])
			}
		}
		if err != nil {
			if pending.Len() > 0 {
				_, _ = io.WriteString(dst, r.Redact(pending.String()))
			}
			return
		}
	}
}

var execPgrep = func(ppid int) ([]byte, error) {
	return exec.Command("pgrep", "-P", fmt.Sprintf("%d", ppid)).Output()
}

// killFunc is injectable for tests; production uses syscall.Kill.
var killFunc = func(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

func getChildPids(rootPgid int) ([]int, error) {
	out, err := execPgrep(rootPgid)
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		var pid int
		if _, err := fmt.Sscanf(line, "%d", &pid); err == nil && pid > 0 {
			pids = append(pids, pid)
			children, _ := getChildPids(pid)
			pids = append(pids, children...)
		}
	}
	return pids, nil
}

func signalProcessTree(pgid int, sig syscall.Signal) error {
	if pids, err := getChildPids(pgid); err == nil {
		for _, pid := range pids {
			_ = killFunc(pid, sig)
		}
	}
	return killFunc(-pgid, sig)
}

// Stop sends SIGTERM to the child's process group and waits up to
// StopTimeout before killing it.
func (r *ProcessRunner) Stop() error {
	if !r.Running() {
		return nil
	}
	pgid, err := syscall.Getpgid(r.cmd.Process.Pid)
	if err != nil {
		return r.cmd.Process.Kill()
	}
	if err := signalProcessTree(pgid, syscall.SIGTERM); err != nil {
		return r.cmd.Process.Kill()
	}
	select {
	case <-time.After(StopTimeout):
		_ = signalProcessTree(pgid, syscall.SIGKILL)
		<-r.done
		return fmt.Errorf("process did not exit gracefully, killed")
	case <-r.done:
		return r.waitErr
	}
}

// Wait waits for the child and for its output to be flushed.
func (r *ProcessRunner) Wait() error {
	if r.cmd == nil || r.done == nil {
		return fmt.Errorf("process not started")
	}
	<-r.done
	return r.waitErr
}

// Done is closed when the current child has exited.
func (r *ProcessRunner) Done() <-chan struct{} {
	return r.done
}

func (r *ProcessRunner) ExitCode() int {
	if r.cmd == nil || r.Running() || r.cmd.ProcessState == nil {
		return -1
	}
	return r.cmd.ProcessState.ExitCode()
}

func (r *ProcessRunner) Running() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
