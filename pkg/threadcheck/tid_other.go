//go:build !linux && !windows

package threadcheck

// Without a portable thread id syscall the goroutine id is used instead.
// MarkCurrentAsMain pins the marking goroutine to its thread, so the two
// identify the same execution context.
func currentThreadID() int64 {
	return goroutineID()
}
