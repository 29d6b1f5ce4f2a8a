// Package errs defines the stable error-code enumeration shared by every
// subsystem of the concurrency bridge, and the total code-to-string mapping
// the bridge orchestrator exposes to callers.
package errs

// Code is a stable numeric error code. The ranges below must never be
// renumbered: external callers persist and branch on these values.
type Code uint32

const (
	// 0x0000 reserved for "no error".
	None Code = 0x0000

	// General errors.
	InitFailed  Code = 0x0001
	SystemError Code = 0x0002

	// Task errors (0x1001-0x1004).
	TaskSpawnFailed Code = 0x1001
	TaskNotFound    Code = 0x1002
	TaskTimeout     Code = 0x1003
	InvalidHandle   Code = 0x1004

	// Sync errors (0x2001-0x2003).
	ThreadNotRegistered Code = 0x2001
	MutexTimeout        Code = 0x2002
	RWLockTimeout       Code = 0x2003

	// Channel errors (0x3001-0x3003).
	CallbackQueueFull Code = 0x3001
	ChannelClosed     Code = 0x3002
	WouldBlock        Code = 0x3003

	// Pattern errors (0x4001-0x4003).
	PoolFull        Code = 0x4001
	PipelineFailed  Code = 0x4002
	WorkerFailed    Code = 0x4003

	// Unimplemented marks an operation the reference behavior leaves as an
	// explicit error path rather than a silent default (see the unbuffered
	// channel open question).
	Unimplemented Code = 0x4004
)

var strings = map[Code]string{
	None:                "no error",
	InitFailed:          "bridge initialization failed",
	SystemError:         "system error",
	TaskSpawnFailed:     "task spawn failed",
	TaskNotFound:        "task not found",
	TaskTimeout:         "operation timed out",
	InvalidHandle:       "invalid handle",
	ThreadNotRegistered: "thread not registered",
	MutexTimeout:        "mutex acquisition timed out",
	RWLockTimeout:       "rwlock acquisition timed out",
	CallbackQueueFull:   "callback queue full",
	ChannelClosed:       "channel closed",
	WouldBlock:          "operation would block",
	PoolFull:            "worker pool full",
	PipelineFailed:      "pipeline stage failed",
	WorkerFailed:        "worker failed",
	Unimplemented:       "not fully implemented",
}

// String is a total function over the error-code enumeration: every Code,
// known or not, maps to a non-empty human-readable string.
func String(c Code) string {
	if s, ok := strings[c]; ok {
		return s
	}
	return "unknown error code"
}

// Error wraps a Code so it can be used as a Go error while keeping the
// stable code available to callers via errors.As.
type Error struct {
	Code    Code
	Context string
}

func New(c Code) *Error { return &Error{Code: c} }

func Newf(c Code, context string) *Error { return &Error{Code: c, Context: context} }

func (e *Error) Error() string {
	if e.Context == "" {
		return String(e.Code)
	}
	return String(e.Code) + ": " + e.Context
}

// Is allows errors.Is(err, errs.New(ChannelClosed)) to match purely on code.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Code == e.Code
}
