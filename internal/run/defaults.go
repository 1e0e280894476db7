package run

import (
	"context"
	"os/exec"
)

// Shells lists the interpreters tried by LookupShell, in order.
var Shells = []string{"bash", "sh"}

// LookupShell returns the path of the first interpreter from Shells found
// in $PATH.
func LookupShell() (string, error) {
	for _, name := range Shells {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrShellMissing
}

// Shell runs commandLine through the located interpreter with -c.
func (r *Runner) Shell(ctx context.Context, commandLine string) (*Output, error) {
	sh, err := LookupShell()
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, sh, "-c", commandLine)
}

// Defaults returns a Runner enforcing exit code 0 and logging every line
// at info level.
func Defaults() *Runner {
	return New().
		Enforce(true).
		OnStdout(LogLines(Stdout)).
		OnStderr(LogLines(Stderr))
}

// Run executes program with Defaults and captures its output.
func Run(ctx context.Context, program string, args ...string) (*Output, error) {
	return Defaults().Capture(true).Execute(ctx, program, args...)
}

// Shell executes commandLine with Defaults and captures its output.
func Shell(ctx context.Context, commandLine string) (*Output, error) {
	return Defaults().Capture(true).Shell(ctx, commandLine)
}
