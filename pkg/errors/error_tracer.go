package errors

import "github.com/pkg/errors"

// StackTracer is satisfied by errors that carry a capture of the call
// stack, such as those produced by github.com/pkg/errors.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer pairs a stable, loggable message with the error that
// caused it. The cause always carries a stack trace: one is captured at
// wrap time unless the error already has one.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer returns a tracer for the given message with no cause yet.
// Attach the cause with Wrap.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// TracerFromError builds a tracer whose message is the error's own text.
func TracerFromError(err error) *ErrorTracer {
	return NewTracer(err.Error()).Wrap(err)
}

// Wrap records err as the tracer's cause and returns the tracer, so it
// chains off NewTracer at the call site.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	e.Err = ensureStack(err)
	return e
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace reports the cause's stack trace, or nil when there is no
// cause.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if st, ok := e.Err.(StackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// ensureStack captures a stack trace for errors that lack one.
func ensureStack(err error) error {
	if _, ok := err.(StackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}
