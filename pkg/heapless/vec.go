// Package heapless provides fixed-capacity containers that never allocate
// after construction. They are safe to use on the audio thread and are laid
// out as a count followed by inline storage so native code can fill them.
package heapless

import (
	"unsafe"

	"github.com/justyntemme/plughost/pkg/errors"
)

// Storage is the set of inline backing arrays a container may use. The array
// length is the container's capacity.
type Storage[T any] interface {
	~[4]T | ~[8]T | ~[16]T | ~[32]T | ~[64]T | ~[128]T | ~[256]T | ~[300]T | ~[512]T | ~[1024]T
}

// Vec is a fixed-capacity vector with inline storage. The zero value is an
// empty vector ready to use.
//
// The in-memory layout is {count int; data [N]T}, matching a C struct with a
// size_t count followed by the array on 64-bit targets.
type Vec[T any, S Storage[T]] struct {
	count int
	data  S
}

// storage views the inline array as a full-length slice without copying.
func (v *Vec[T, S]) storage() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&v.data)), len(v.data))
}

// Cap returns the fixed capacity.
func (v *Vec[T, S]) Cap() int {
	return len(v.data)
}

// Len returns the number of stored elements.
func (v *Vec[T, S]) Len() int {
	return v.count
}

// IsEmpty reports whether the vector holds no elements.
func (v *Vec[T, S]) IsEmpty() bool {
	return v.count == 0
}

// IsFull reports whether another Push would fail.
func (v *Vec[T, S]) IsFull() bool {
	return v.count == len(v.data)
}

// Push appends value. It fails with a capacity error when the vector is full
// and leaves the contents untouched.
func (v *Vec[T, S]) Push(value T) error {
	if v.count >= len(v.data) {
		return errCapacity
	}
	v.storage()[v.count] = value
	v.count++
	return nil
}

// Pop removes and returns the last element.
func (v *Vec[T, S]) Pop() (T, bool) {
	var zero T
	if v.count == 0 {
		return zero, false
	}
	v.count--
	buf := v.storage()
	value := buf[v.count]
	buf[v.count] = zero
	return value, true
}

// At returns the element at index. It panics when index is out of range, like
// a slice index would.
func (v *Vec[T, S]) At(index int) T {
	if index < 0 || index >= v.count {
		panic("heapless: index out of range")
	}
	return v.storage()[index]
}

// Set replaces the element at index.
func (v *Vec[T, S]) Set(index int, value T) {
	if index < 0 || index >= v.count {
		panic("heapless: index out of range")
	}
	v.storage()[index] = value
}

// Last returns a pointer to the last element, or nil when empty.
func (v *Vec[T, S]) Last() *T {
	if v.count == 0 {
		return nil
	}
	return &v.storage()[v.count-1]
}

// Clear empties the vector and zeroes the used slots.
func (v *Vec[T, S]) Clear() {
	clear(v.storage()[:v.count])
	v.count = 0
}

// Truncate shrinks the vector to n elements. Larger n is a no-op.
func (v *Vec[T, S]) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= v.count {
		return
	}
	clear(v.storage()[n:v.count])
	v.count = n
}

// Slice returns the used portion as a slice backed by the inline storage.
// The slice is only valid until the next mutation.
func (v *Vec[T, S]) Slice() []T {
	return v.storage()[:v.count]
}

// Extend pushes every value, stopping at the first capacity failure.
func (v *Vec[T, S]) Extend(values ...T) error {
	for _, value := range values {
		if err := v.Push(value); err != nil {
			return err
		}
	}
	return nil
}

// FromSlice builds a vector from values.
func FromSlice[T any, S Storage[T]](values []T) (Vec[T, S], error) {
	var v Vec[T, S]
	err := v.Extend(values...)
	return v, err
}

// Contains reports whether value is stored in v.
func Contains[T comparable, S Storage[T]](v *Vec[T, S], value T) bool {
	for _, item := range v.Slice() {
		if item == value {
			return true
		}
	}
	return false
}

var errCapacity = &errors.Error{Kind: errors.KindCapacityExceeded, Op: "heapless.Vec", Detail: "vector is full"}
