package native

import (
	"go.uber.org/zap"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/param"
)

// Edits reports parameter gestures made in an editor. Each Perform and End
// sets the value and sends a ParameterUpdate to the host carrying the value
// from before the gesture, so hosts can record one undo step per gesture.
//
// Editors may call Edits from any non-audio thread.
type Edits struct {
	b       *backend
	tracker param.EditTracker
}

func (e *Edits) index(op string, id int32) (int32, error) {
	index := e.b.params.IndexOf(id)
	if index < 0 {
		return -1, errors.NotFound(op, "parameter", itoa(id))
	}
	return index, nil
}

// Begin starts a gesture on the parameter id.
func (e *Edits) Begin(id int32) error {
	index, err := e.index("native.Edits.Begin", id)
	if err != nil {
		return err
	}
	if err := e.tracker.Begin(index); err != nil {
		e.b.log.Warn("parameter gesture not tracked", zap.Int32("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Perform sets a normalized value during a gesture. A Perform without Begin
// is a single-step edit. When too many gestures are open the value is still
// applied and reported, and the error says the gesture will get no final
// update.
func (e *Edits) Perform(id int32, normalized float64) error {
	index, err := e.index("native.Edits.Perform", id)
	if err != nil {
		return err
	}
	e.b.params.Get(id).SetValue(normalized)

	u, err := e.tracker.Perform(index, float32(normalized))
	u.ID = id
	e.b.notify(event.ParameterChanged(u))
	if err != nil {
		e.b.log.Warn("parameter gesture not tracked", zap.Int32("id", id), zap.Error(err))
	}
	return err
}

// End closes the gesture on id. Ending a gesture that never performed is a
// no-op.
func (e *Edits) End(id int32) error {
	index, err := e.index("native.Edits.End", id)
	if err != nil {
		return err
	}
	u, ok := e.tracker.End(index)
	if !ok {
		return nil
	}
	u.ID = id
	e.b.notify(event.ParameterChanged(u))
	return nil
}

// Resize asks the host to resize the editor window.
func (e *Edits) Resize(width, height int) {
	e.b.notify(event.Resize(width, height))
}

// RequestClose asks the host to close the editor.
func (e *Edits) RequestClose() {
	e.b.notify(event.Notify(event.RequestEditorClose))
}
