package threadcheck

import (
	"runtime"
	"sync"
)

// runtime.Stack keeps a reference to the buffer it fills, so a local array
// would escape on every call. Buffers are reused instead.
var stackBufs = sync.Pool{New: func() any { return new([64]byte) }}

// goroutineID parses the id from the "goroutine N [" header of the current
// stack trace. It returns -1 if the header is not in that form.
func goroutineID() int64 {
	buf := stackBufs.Get().(*[64]byte)
	id := parseGoroutineID(buf[:runtime.Stack(buf[:], false)])
	stackBufs.Put(buf)
	return id
}

func parseGoroutineID(b []byte) int64 {
	const prefix = "goroutine "
	if len(b) <= len(prefix) || string(b[:len(prefix)]) != prefix {
		return -1
	}
	var id int64
	n := 0
	for _, c := range b[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
		n++
	}
	if n == 0 {
		return -1
	}
	return id
}
