package value

import "errors"

// Sentinel errors for the command-level failure kinds spec.md §7 assigns
// to the Value layer. These surface as typed Error replies; they never
// unwind past the command loop (handled by internal/engine).
var (
	ErrNotAnInteger = errors.New("ERR value is not an integer or out of range")
	ErrNotAFloat    = errors.New("ERR value is not a valid float")
	ErrIncrOverflow = errors.New("ERR increment or decrement would overflow")

	ErrSyntax = errors.New("ERR syntax error")

	ErrIndexOutOfRange = errors.New("ERR index out of range")

	ErrPrecisionMismatch    = errors.New("ERR HyperLogLogs with different precision cannot be merged")
	ErrInvalidRegisterCount = errors.New("ERR invalid HyperLogLog register count")
)
