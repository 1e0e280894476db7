package run

// Pending is an execution started by ExecuteAsync.
type Pending struct {
	done chan struct{}
	out  *Output
	err  error
}

// Done is closed once the execution has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the execution has finished and returns its result.
// It may be called any number of times.
func (p *Pending) Wait() (*Output, error) {
	<-p.done
	return p.out, p.err
}
