package ptz

import "context"

// Dispatcher serialises commands from many goroutines onto a single
// Router. Run owns the router; nothing else may call it while Run is active.
type Dispatcher struct {
	r    *Router
	reqs chan request
}

type request struct {
	name  string
	data  Data
	reply chan string
}

// NewDispatcher returns a Dispatcher for r.
func NewDispatcher(r *Router) *Dispatcher {
	return &Dispatcher{r: r, reqs: make(chan request)}
}

// Run handles commands until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.reqs:
			req.reply <- d.r.Handle(req.name, req.data)
		}
	}
}

// Handle submits a command and waits for it to be processed. It returns
// the router's result, or ctx.Err() if ctx ends before the command is
// accepted or finished.
func (d *Dispatcher) Handle(ctx context.Context, name string, data Data) (string, error) {
	req := request{name: name, data: data, reply: make(chan string, 1)}
	select {
	case d.reqs <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
