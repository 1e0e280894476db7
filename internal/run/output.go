package run

// Output is the result of one finished execution. It is never modified after
// Execute returns it.
type Output struct {
	code   int
	stdout *string
	stderr *string
}

func newOutput(code int, stdout, stderr *string) *Output {
	return &Output{code: code, stdout: stdout, stderr: stderr}
}

// Code returns the exit code of the child process.
func (o *Output) Code() int { return o.code }

// Success reports whether the child exited with code 0.
func (o *Output) Success() bool { return o.code == 0 }

// Stdout returns the captured standard output. The second value is false
// when the Runner did not capture.
func (o *Output) Stdout() (string, bool) { return deref(o.stdout) }

// Stderr returns the captured standard error. The second value is false
// when the Runner did not capture.
func (o *Output) Stderr() (string, bool) { return deref(o.stderr) }

// Captured reports whether the stream text was buffered.
func (o *Output) Captured() bool { return o.stdout != nil && o.stderr != nil }

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
