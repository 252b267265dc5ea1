package domain

import "context"

// AbortToken is the cooperative cancellation value threaded through a
// handler's context (spec GLOSSARY, §9). It is a plain struct wrapping a
// context so handlers can use either the observable flag or the standard
// context cancellation idiom (select on Done(), or await naturally and
// let the context cancel any blocking I/O) without the core depending on
// any coroutine-specific keywords.
type AbortToken struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewAbortToken creates a token derived from parent. Signal cancels it.
func NewAbortToken(parent context.Context) AbortToken {
	ctx, cancel := context.WithCancelCause(parent)
	return AbortToken{ctx: ctx, cancel: cancel}
}

// Context returns the token's context; handlers may pass it to any
// context-aware API to have it cancelled when the token is signalled.
func (t AbortToken) Context() context.Context {
	return t.ctx
}

// Done returns a channel closed once the token is signalled, for use in a
// select alongside other work.
func (t AbortToken) Done() <-chan struct{} {
	return t.ctx.Done()
}

// IsCancelled reports whether Signal has been called.
func (t AbortToken) IsCancelled() bool {
	return t.ctx.Err() != nil
}

// Signal marks the token cancelled with reason, idempotently.
func (t AbortToken) Signal(reason error) {
	t.cancel(reason)
}

// Reason returns the error passed to Signal, or nil if not yet signalled.
func (t AbortToken) Reason() error {
	return context.Cause(t.ctx)
}
