// Package state encodes plugin preset data.
package state

import (
	"encoding/binary"

	"github.com/justyntemme/plughost/pkg/errors"
)

const prefixLen = 4

// Frame joins processor and controller state into one preset blob. The blob
// starts with the processor length as a little-endian uint32.
func Frame(processor, controller []byte) []byte {
	blob := make([]byte, prefixLen, prefixLen+len(processor)+len(controller))
	binary.LittleEndian.PutUint32(blob, uint32(len(processor)))
	blob = append(blob, processor...)
	return append(blob, controller...)
}

// Split is the inverse of Frame. The returned slices alias blob.
func Split(blob []byte) (processor, controller []byte, err error) {
	if len(blob) < prefixLen {
		return nil, nil, errors.Malformed("state.Split", "preset blob is %d bytes, need at least %d", len(blob), prefixLen)
	}
	n := binary.LittleEndian.Uint32(blob)
	rest := blob[prefixLen:]
	if uint64(n) > uint64(len(rest)) {
		return nil, nil, errors.Malformed("state.Split", "processor length %d exceeds remaining %d bytes", n, len(rest))
	}
	return rest[:n], rest[n:], nil
}
