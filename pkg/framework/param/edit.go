package param

import (
	"math"
	"sync"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/heapless"
)

// MaxConcurrentEdits is how many gestures an EditTracker follows at once.
const MaxConcurrentEdits = 32

type editState struct {
	index   int32
	initial float32
	current float32
}

// EditTracker turns an editor's begin/perform/end gesture callbacks into
// Updates that carry the pre-edit value and an end-of-edit marker. Editors
// may call it from any thread.
type EditTracker struct {
	mu      sync.Mutex
	started heapless.Vec[int32, [MaxConcurrentEdits]int32]
	editing heapless.Vec[editState, [MaxConcurrentEdits]editState]
}

// Begin records the start of a gesture on index. It fails with
// CapacityExceeded when MaxConcurrentEdits gestures are already starting.
func (t *EditTracker) Begin(index int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if heapless.Contains(&t.started, index) {
		return nil
	}
	if t.started.Push(index) != nil {
		return errors.CapacityExceeded("param.EditTracker.Begin", MaxConcurrentEdits)
	}
	return nil
}

// Perform records a new value during a gesture. The first value after Begin
// opens a new edit whose initial value is unknown to the host, so the
// returned Update carries NaN as its initial value.
//
// When MaxConcurrentEdits edits are already open the Update is still
// returned, along with a CapacityExceeded error: the edit is not tracked and
// End will not report it.
func (t *EditTracker) Perform(index int32, value float32) (Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	initial := float32(math.NaN())
	pos := t.find(index)
	justStarted := t.removeStarted(index)

	if justStarted || pos < 0 {
		if pos >= 0 {
			t.removeEditing(pos)
		}
		if t.editing.Push(editState{index: index, initial: value, current: value}) != nil {
			err = errors.CapacityExceeded("param.EditTracker.Perform", MaxConcurrentEdits)
		}
	} else {
		st := t.editing.Slice()
		st[pos].current = value
		initial = st[pos].initial
	}

	return Update{ID: index, Index: index, Value: value, Initial: initial}, err
}

// End closes the gesture on index. It returns the final Update and true, or
// false when no edit was open.
func (t *EditTracker) End(index int32) (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeStarted(index)
	pos := t.find(index)
	if pos < 0 {
		return Update{}, false
	}
	st := t.editing.At(pos)
	t.removeEditing(pos)

	return Update{
		ID:      index,
		Index:   index,
		Value:   st.current,
		Initial: st.initial,
		EndEdit: true,
	}, true
}

func (t *EditTracker) find(index int32) int {
	for i, st := range t.editing.Slice() {
		if st.index == index {
			return i
		}
	}
	return -1
}

func (t *EditTracker) removeStarted(index int32) bool {
	s := t.started.Slice()
	for i, v := range s {
		if v == index {
			copy(s[i:], s[i+1:])
			t.started.Truncate(len(s) - 1)
			return true
		}
	}
	return false
}

func (t *EditTracker) removeEditing(pos int) {
	s := t.editing.Slice()
	copy(s[pos:], s[pos+1:])
	t.editing.Truncate(len(s) - 1)
}
