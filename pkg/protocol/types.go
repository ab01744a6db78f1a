package protocol

// Wire-level constants shared by generated guest proxies and host wrappers.
// Both sides are compiled independently, so every name and value here is part
// of the boundary ABI and must not change without regenerating both stubs.

// DefaultModule is the wasm import module that host wrappers are exported from.
const DefaultModule = "env"

// Sentinel is returned by a host wrapper instead of a length when the result
// could not be encoded. Callers treat any negative value as "no result".
const Sentinel int64 = -1

// Host export names used by the readback protocol.
const (
	ReadByteExport      = "read_byte"
	ReadByteKeyedExport = "read_byte_keyed"
	ReleaseExport       = "release"
	LogMessageExport    = "log_message"
)

// Mode selects how results are held between the wrapper call and readback.
type Mode string

const (
	// ModeSingle keeps one shared result slot per boundary instance.
	// Calls must be strictly sequential.
	ModeSingle Mode = "single"

	// ModeKeyed stores every result under a call token, allowing several
	// results to be outstanding at once.
	ModeKeyed Mode = "keyed"
)

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	return m == ModeSingle || m == ModeKeyed
}

// LogLevel is the level argument of the log_message export.
// 0 = debug, 1 = info, 2 = warn, 3 = error
type LogLevel uint32

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)
