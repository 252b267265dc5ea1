package queue

import "context"

// ExecutionUnit runs exactly one handler invocation to completion, isolating
// it from the supervisor's own process to whatever degree the chosen
// implementation supports. The in-process unit (execunit_inprocess.go) gives
// no crash containment; the process unit (execunit_process.go) re-execs the
// current binary in a child process, so a panicking or wedged handler only
// takes down its own child (spec §4.4 "Process isolation").
type ExecutionUnit interface {
	// Run invokes the handler for the given job/params and blocks until it
	// returns, ctx is cancelled, or the unit is forcibly torn down. Run
	// itself never panics: an in-process panic is recovered and returned as
	// a PanicError.
	Run(ctx context.Context, handler Handler, jobID string, params []byte, hctx *HandlerContext) error

	// Kill forcibly terminates an in-flight Run (SIGTERM then, after grace,
	// SIGKILL for the process unit; a no-op signal for the in-process unit,
	// which relies on the handler observing ctx/AbortToken instead).
	Kill(graceful bool)
}

// ExecutionUnitFactory creates a fresh ExecutionUnit per claimed job. The
// Executor owns one factory for its whole lifetime and calls it once per
// Run.
type ExecutionUnitFactory func() ExecutionUnit
