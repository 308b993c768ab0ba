package param

import (
	stderrors "errors"
	"testing"

	"github.com/justyntemme/plughost/pkg/errors"
)

func TestEditGesture(t *testing.T) {
	var tr EditTracker

	tr.Begin(3)
	first, _ := tr.Perform(3, 0.2)
	if first.HasInitial() {
		t.Errorf("Expected first value of a gesture to have no initial, got %f", first.Initial)
	}

	second, _ := tr.Perform(3, 0.4)
	if second.Initial != 0.2 || second.Value != 0.4 {
		t.Errorf("Expected initial 0.2 value 0.4, got %f %f", second.Initial, second.Value)
	}
	if second.EndEdit {
		t.Error("Mid-gesture update must not be final")
	}

	last, ok := tr.End(3)
	if !ok {
		t.Fatal("Expected End to close the gesture")
	}
	if !last.EndEdit || last.Initial != 0.2 || last.Value != 0.4 {
		t.Errorf("Unexpected final update %+v", last)
	}

	if _, ok := tr.End(3); ok {
		t.Error("Second End should report no open edit")
	}
}

func TestEditGestureRestart(t *testing.T) {
	var tr EditTracker

	tr.Perform(1, 0.1)
	tr.Perform(1, 0.3)

	tr.Begin(1)
	restarted, _ := tr.Perform(1, 0.5)
	if restarted.HasInitial() {
		t.Error("Begin should start a fresh edit")
	}
	next, _ := tr.Perform(1, 0.6)
	if next.Initial != 0.5 {
		t.Errorf("Expected new baseline 0.5, got %f", next.Initial)
	}
}

func TestEditGestureIndependentParameters(t *testing.T) {
	var tr EditTracker

	tr.Begin(1)
	tr.Begin(2)
	tr.Perform(1, 0.1)
	tr.Perform(2, 0.9)
	tr.Perform(1, 0.2)

	u, ok := tr.End(2)
	if !ok || u.Initial != 0.9 {
		t.Errorf("Expected parameter 2 baseline 0.9, got %+v", u)
	}
	u, ok = tr.End(1)
	if !ok || u.Initial != 0.1 || u.Value != 0.2 {
		t.Errorf("Expected parameter 1 0.1 -> 0.2, got %+v", u)
	}
}

func TestEditTrackerCapacity(t *testing.T) {
	var tr EditTracker

	for i := int32(0); i < MaxConcurrentEdits; i++ {
		if err := tr.Begin(i); err != nil {
			t.Fatalf("Begin(%d) failed: %v", i, err)
		}
	}
	if err := tr.Begin(MaxConcurrentEdits); !stderrors.Is(err, errors.ErrCapacityExceeded) {
		t.Errorf("Expected capacity error from Begin, got %v", err)
	}
	if err := tr.Begin(0); err != nil {
		t.Errorf("Expected repeated Begin to be accepted, got %v", err)
	}

	for i := int32(0); i < MaxConcurrentEdits; i++ {
		if _, err := tr.Perform(i, 0.5); err != nil {
			t.Fatalf("Perform(%d) failed: %v", i, err)
		}
	}
	u, err := tr.Perform(MaxConcurrentEdits, 0.7)
	if !stderrors.Is(err, errors.ErrCapacityExceeded) {
		t.Errorf("Expected capacity error from Perform, got %v", err)
	}
	if u.Value != 0.7 || u.Index != MaxConcurrentEdits {
		t.Errorf("Expected the update to be returned anyway, got %+v", u)
	}
	if _, ok := tr.End(MaxConcurrentEdits); ok {
		t.Error("Expected an untracked edit to have nothing to end")
	}

	if _, ok := tr.End(0); !ok {
		t.Fatal("Expected End to close a tracked edit")
	}
	if _, err := tr.Perform(MaxConcurrentEdits, 0.8); err != nil {
		t.Errorf("Expected room after End, got %v", err)
	}
}
