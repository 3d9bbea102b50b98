package lib

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// RunOptions describes one child process.
type RunOptions struct {
	Name   string
	Args   []string
	Env    []string  // extra KEY=VALUE pairs
	Stdin  io.Reader // nil means no input
	Stdout io.Writer // nil means os.Stdout
	Stderr io.Writer // nil means os.Stderr
}

// Argv is the full command line, name first.
func (o *RunOptions) Argv() []string {
	return append([]string{o.Name}, o.Args...)
}

// Runner runs ssh, scp, rsync and watchexec on our behalf.
type Runner interface {
	Run(ctx context.Context, opts *RunOptions) error
	LookPath(name string) (string, error)
}

type execRunner struct{}

func NewRunner() Runner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, opts *RunOptions) error {
	Logger.Cmd(opts.Argv())
	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...)
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	err := cmd.Run()
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	return nil
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// FmtCmd renders argv as a single copy and pastable shell command.
func FmtCmd(argv []string) string {
	return shellquote.Join(argv...)
}
