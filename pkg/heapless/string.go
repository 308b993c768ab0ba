package heapless

import (
	"unicode/utf8"
	"unsafe"

	"github.com/justyntemme/plughost/pkg/errors"
)

// String is a fixed-capacity UTF-8 string. The capacity is in bytes, not
// characters. The zero value is the empty string.
type String[S Storage[byte]] struct {
	data Vec[byte, S]
}

// StringFrom builds a String from s, failing when s does not fit.
func StringFrom[S Storage[byte]](s string) (String[S], error) {
	var str String[S]
	err := str.PushString(s)
	return str, err
}

// PushString appends s. Either all of s is appended or nothing is. It
// rejects invalid UTF-8.
func (s *String[S]) PushString(str string) error {
	if !utf8.ValidString(str) {
		return errInvalidUTF8
	}
	if s.data.Len()+len(str) > s.data.Cap() {
		return errStringFull
	}
	buf := s.data.storage()
	copy(buf[s.data.count:], str)
	s.data.count += len(str)
	return nil
}

// PushCString copies a NUL-terminated byte sequence written by native code,
// reading at most Cap()-1 bytes. It rejects invalid UTF-8.
func (s *String[S]) PushCString(raw []byte) error {
	limit := s.data.Cap() - 1
	n := 0
	for n < len(raw) && n < limit && raw[n] != 0 {
		n++
	}
	if !utf8.Valid(raw[:n]) {
		return errInvalidUTF8
	}
	if s.data.Len()+n > s.data.Cap() {
		return errStringFull
	}
	buf := s.data.storage()
	copy(buf[s.data.count:], raw[:n])
	s.data.count += n
	return nil
}

// Push appends one rune.
func (s *String[S]) Push(r rune) error {
	if !utf8.ValidRune(r) {
		return errInvalidUTF8
	}
	n := utf8.RuneLen(r)
	if s.data.Len()+n > s.data.Cap() {
		return errStringFull
	}
	buf := s.data.storage()
	utf8.EncodeRune(buf[s.data.count:], r)
	s.data.count += n
	return nil
}

// Pop removes and returns the last rune. It reports false when the string
// is empty.
func (s *String[S]) Pop() (rune, bool) {
	b := s.data.Slice()
	if len(b) == 0 {
		return 0, false
	}
	r, size := utf8.DecodeLastRune(b)
	s.data.count -= size
	return r, true
}

// Len returns the length in bytes.
func (s *String[S]) Len() int {
	return s.data.Len()
}

// Cap returns the capacity in bytes.
func (s *String[S]) Cap() int {
	return s.data.Cap()
}

// Clear empties the string.
func (s *String[S]) Clear() {
	s.data.Clear()
}

// Bytes returns the stored bytes, backed by the inline storage.
func (s *String[S]) Bytes() []byte {
	return s.data.Slice()
}

// View returns the contents without copying. The result aliases the inline
// storage and must not outlive the next mutation.
func (s *String[S]) View() string {
	b := s.data.Slice()
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// String returns a heap copy of the contents.
func (s String[S]) String() string {
	return string(s.data.Slice())
}

var (
	errStringFull  = &errors.Error{Kind: errors.KindCapacityExceeded, Op: "heapless.String", Detail: "string is full"}
	errInvalidUTF8 = &errors.Error{Kind: errors.KindMalformed, Op: "heapless.String", Detail: "invalid UTF-8"}
)
