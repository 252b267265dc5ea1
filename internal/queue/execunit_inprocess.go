package queue

import (
	"context"
	"runtime/debug"
)

// InProcessUnit runs the handler as a plain goroutine call in the
// supervisor's own process. It is the default mode (process_isolation=false)
// and the cheapest: no fork/exec cost, but a panicking handler is only
// contained by recover() here, not by OS process boundaries.
type InProcessUnit struct{}

// NewInProcessUnit returns a factory producing InProcessUnit instances.
func NewInProcessUnit() ExecutionUnitFactory {
	return func() ExecutionUnit { return &InProcessUnit{} }
}

func (u *InProcessUnit) Run(ctx context.Context, handler Handler, jobID string, params []byte, hctx *HandlerContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, StackTrace: string(debug.Stack())}
		}
	}()
	return handler(ctx, params, hctx)
}

// Kill is a no-op: the in-process unit has no child to signal. Timeout and
// cancellation rely entirely on the handler observing ctx/AbortToken.
func (u *InProcessUnit) Kill(graceful bool) {}
