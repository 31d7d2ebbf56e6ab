package runtime

import (
	"errors"
	"fmt"
)

// Common errors used across runtime implementations
var (
	ErrRuntimeNotFound         = errors.New("runtime not found")
	ErrModuleCompileFailed     = errors.New("module compilation failed")
	ErrModuleInstantiateFailed = errors.New("module instantiation failed")
	ErrFunctionNotExported     = errors.New("function not exported")
	ErrInvalidConfiguration    = errors.New("invalid configuration")
)

// ExitError is returned when the guest terminates through WASI proc_exit.
type ExitError struct {
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("guest exited with code %d", e.Code)
}

// ExitCode returns the exit code carried by err, if any.
func ExitCode(err error) (uint32, bool) {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code, true
	}
	return 0, false
}
