package event

import (
	"cmp"
	"slices"

	"github.com/justyntemme/plughost/pkg/heapless"
)

// MaxTrackedParameters bounds the distinct parameter ids Dedup can track in
// one block.
const MaxTrackedParameters = 512

func byOffset(a, b HostEvent) int {
	return cmp.Compare(a.Offset, b.Offset)
}

// SortByOffset orders events by block offset, keeping submission order among
// equal offsets. It does nothing when events are already ordered. It does not
// allocate.
func SortByOffset(events []HostEvent) {
	if slices.IsSortedFunc(events, byOffset) {
		return
	}
	slices.SortStableFunc(events, byOffset)
}

// Deduper keeps one parameter event per parameter id, for formats that accept
// only one value per parameter per block. Its scratch space is inline so a
// Deduper held by its owner never allocates.
type Deduper struct {
	seen heapless.Vec[int32, [MaxTrackedParameters]int32]
	// Overflow counts events kept because the id table was full.
	Overflow uint64
}

// Dedup compacts events in place and returns the surviving tail of the
// slice. For each parameter id the event with the largest offset survives;
// on equal offsets the later one wins. Events must already be sorted by
// offset. Other events are kept, and relative order is preserved.
func (d *Deduper) Dedup(events []HostEvent) []HostEvent {
	d.seen.Clear()

	w := len(events)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == HostParameter {
			id := events[i].Parameter.ID
			if heapless.Contains(&d.seen, id) {
				continue
			}
			if err := d.seen.Push(id); err != nil {
				d.Overflow++
			}
		}
		w--
		if w != i {
			events[w] = events[i]
		}
	}
	return events[w:]
}

// Prepare sorts events and, unless the plugin handles automation within a
// block, removes superseded parameter events.
func (d *Deduper) Prepare(events []HostEvent, sampleAccurate bool) []HostEvent {
	SortByOffset(events)
	if sampleAccurate {
		return events
	}
	return d.Dedup(events)
}
