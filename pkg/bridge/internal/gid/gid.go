// Package gid extracts the calling goroutine's numeric id, the closest
// stable per-thread identity a pure-Go program can obtain. It backs both
// the thread registry (spec §4.7) and the recursive mutex's owner field
// (spec §4.5), which both need "who is the current thread" without an OS
// thread handle.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

// ID returns the calling goroutine's id by parsing the "goroutine N [...]"
// header of a short stack trace. Deliberately not called from hot paths:
// it allocates and parses text.
func ID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	idEnd := bytes.IndexByte(buf, ' ')
	if idEnd < 0 {
		return 0
	}
	id, err := strconv.ParseInt(string(buf[:idEnd]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
