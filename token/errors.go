package token

import "fmt"

// CompileError is a user-facing diagnostic anchored to a source position.
type CompileError struct {
	Pos Position
	Msg string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("error (%s): %s", ce.Pos, ce.Msg)
}

// Errorf builds a CompileError at pos.
func Errorf(pos Position, format string, args ...any) *CompileError {
	return &CompileError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// InternalError marks an invariant violation inside the compiler itself.
// These are bugs, not user errors, but they still fail the compilation.
type InternalError struct {
	Msg string
}

func (ie *InternalError) Error() string {
	return "internal compiler error: " + ie.Msg
}

func InternalErrorf(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
