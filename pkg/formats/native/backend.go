package native

import (
	"bytes"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/framework/process"
	"github.com/justyntemme/plughost/pkg/framework/state"
	"github.com/justyntemme/plughost/pkg/plugin"
	"github.com/justyntemme/plughost/pkg/ringbuf"
)

// editorQueueCapacity bounds the host values waiting for the editor.
const editorQueueCapacity = 256

// backend runs a Processor in-process.
//
// mu guards the processor's lifecycle and serializes pushes to the
// notification ring. Process only try-locks it and renders silence when a
// main-thread call holds it, so the audio thread never waits.
type backend struct {
	mu sync.Mutex

	info   Info
	proc   Processor
	params *param.Registry
	state  *state.Manager
	ctx    *process.Context
	events *ringbuf.Producer[event.PluginEvent]
	host   *plugin.Host
	log    *zap.Logger

	rate      float64
	blockSize int
	active    bool
	closed    bool
	// resume is the activation requested by Resume/Suspend. Resume may run
	// on the audio thread, so Process applies it.
	resume atomic.Bool

	// latency and tail as last reported to the host, owned by Process
	latency int
	tail    int

	editor     Editor
	editorOpen atomic.Bool
	edits      *Edits
	toEditorIn *ringbuf.Producer[param.Update]
	toEditor   *ringbuf.Consumer[param.Update]
}

func newBackend(info Info, proc Processor, req plugin.LoadRequest) (*backend, error) {
	events := req.Events
	if events == nil {
		events, _ = ringbuf.New[event.PluginEvent](ringbuf.DefaultCapacity)
	}

	defaults := plugin.DefaultProcessDetails()
	b := &backend{
		info:      info,
		proc:      proc,
		params:    proc.Parameters(),
		events:    events,
		host:      req.Host,
		log:       Logger().With(zap.String("plugin", info.ID)),
		rate:      float64(defaults.SampleRate),
		blockSize: defaults.BlockSize,
	}
	b.state = state.NewManager(b.params)
	if c, ok := proc.(state.CustomState); ok {
		b.state.SetCustomState(c)
	}
	b.ctx = process.NewContext(b.blockSize, b.params, events)
	b.edits = &Edits{b: b}
	b.toEditorIn, b.toEditor = ringbuf.New[param.Update](editorQueueCapacity)
	if e, ok := proc.(Editor); ok {
		b.editor = e
	}

	if err := proc.Initialize(b.rate, b.blockSize); err != nil {
		return nil, errors.LoadFailure("native.Load", err, "initialize %s", info.ID)
	}
	b.latency = proc.LatencySamples()
	b.tail = proc.TailSamples()
	return b, nil
}

// notify pushes a notification from a main-thread call.
func (b *backend) notify(ev event.PluginEvent) {
	b.mu.Lock()
	b.events.TryPush(ev)
	b.mu.Unlock()
}

func (b *backend) Process(inputs, outputs []bus.AudioBus, events []event.HostEvent, details *plugin.ProcessDetails) {
	if !b.mu.TryLock() {
		clearBuses(outputs)
		return
	}
	defer b.mu.Unlock()

	if b.resume.Load() && !b.closed {
		// a failed activation is retried on the next block
		_ = b.setActive(true)
	}
	if !b.active {
		clearBuses(outputs)
		return
	}

	b.ctx.Reset(inputs, outputs, events)
	b.ctx.SampleRate = b.rate
	if details != nil {
		b.ctx.Transport = process.Transport{
			Tempo:   details.Tempo,
			PPQ:     details.PlayerTime,
			Playing: details.PlayingState.IsPlaying(),
		}
	}
	b.ctx.ApplyParameterEvents()

	if b.editorOpen.Load() {
		for i := range events {
			if events[i].Kind == event.HostParameter {
				b.toEditorIn.TryPush(events[i].Parameter)
			}
		}
	}

	b.proc.ProcessAudio(b.ctx)

	if l := b.proc.LatencySamples(); l != b.latency {
		b.latency = l
		b.events.TryPush(event.LatencyChanged(l))
	}
	if t := b.proc.TailSamples(); t != b.tail {
		b.tail = t
		b.events.TryPush(event.TailChanged(t))
	}
}

func itoa(v int32) string {
	return strconv.Itoa(int(v))
}

func clearBuses(buses []bus.AudioBus) {
	for _, b := range buses {
		b.Clear()
	}
}

func (b *backend) PresetData() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.state.Bytes()
	if err != nil {
		return nil, err
	}
	return state.Frame(data, nil), nil
}

func (b *backend) SetPresetData(data []byte) error {
	processor, _, err := state.Split(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	err = b.state.Load(bytes.NewReader(processor))
	if err == nil {
		b.events.TryPush(event.Notify(event.UpdateDisplay))
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}

	b.refreshEditor()
	return nil
}

func (b *backend) presets(op string) ([]Preset, error) {
	bank, ok := b.proc.(PresetBank)
	if !ok {
		return nil, errors.Unsupported(op, "presets")
	}
	return bank.Presets(), nil
}

func (b *backend) PresetName(id int32) (string, error) {
	const op = "native.PresetName"
	presets, err := b.presets(op)
	if err != nil {
		return "", err
	}
	if id < 0 || int(id) >= len(presets) {
		return "", errors.NotFound(op, "preset", itoa(id))
	}
	return presets[id].Name, nil
}

func (b *backend) SetPreset(id int32) error {
	const op = "native.SetPreset"
	presets, err := b.presets(op)
	if err != nil {
		return err
	}
	if id < 0 || int(id) >= len(presets) {
		return errors.NotFound(op, "preset", itoa(id))
	}

	b.mu.Lock()
	for pid, plain := range presets[id].Values {
		if p := b.params.Get(pid); p != nil {
			p.SetValue(p.Normalize(plain))
		}
	}
	b.events.TryPush(event.Notify(event.UpdateDisplay))
	b.mu.Unlock()

	b.refreshEditor()
	return nil
}

// refreshEditor sends every parameter value to an open editor after a bulk
// change.
func (b *backend) refreshEditor() {
	l, ok := b.proc.(EditorListener)
	if !ok || !b.editorOpen.Load() {
		return
	}
	for _, p := range b.params.All() {
		l.ParameterChanged(p.ID, p.Value())
	}
}

func (b *backend) Parameter(index int32) (param.Info, error) {
	p := b.params.GetByIndex(index)
	if p == nil {
		return param.Info{}, errors.NotFound("native.Parameter", "parameter index", itoa(index))
	}
	return p.Info(index), nil
}

func (b *backend) ParameterCount() int {
	return int(b.params.Count())
}

func (b *backend) ShowEditor(window unsafe.Pointer, kind plugin.WindowType) (plugin.Size, error) {
	if b.editor == nil {
		return plugin.Size{}, errors.Unsupported("native.ShowEditor", "editor")
	}

	// values queued while the editor was closed are stale
	b.toEditor.Drain(func(param.Update) {})

	size, err := b.editor.OpenEditor(window, kind, b.edits)
	if err != nil {
		return plugin.Size{}, err
	}
	b.editorOpen.Store(true)
	return size, nil
}

func (b *backend) HideEditor() {
	if b.editor == nil || !b.editorOpen.Swap(false) {
		return
	}
	b.editor.CloseEditor()
}

// FlushEditorUpdates hands values the host automated during processing to
// the open editor.
func (b *backend) FlushEditorUpdates() {
	l, ok := b.proc.(EditorListener)
	if !ok || !b.editorOpen.Load() {
		b.toEditor.Drain(func(param.Update) {})
		return
	}
	b.toEditor.Drain(func(u param.Update) {
		p := b.params.Get(u.ID)
		if p == nil {
			p = b.params.GetByIndex(u.Index)
		}
		if p != nil {
			l.ParameterChanged(p.ID, float64(u.Value))
		}
	})
}

func (b *backend) Suspend() {
	b.resume.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.deactivate()
}

// Resume takes effect at the start of the next Process call.
func (b *backend) Resume() {
	b.resume.Store(true)
}

func (b *backend) setActive(active bool) error {
	if b.active == active {
		return nil
	}
	if err := b.proc.SetActive(active); err != nil {
		return err
	}
	b.active = active
	return nil
}

func (b *backend) deactivate() {
	if err := b.setActive(false); err != nil {
		b.log.Warn("failed to deactivate", zap.Error(err))
	}
}

func (b *backend) ChangeSampleRate(rate int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if float64(rate) == b.rate {
		return
	}
	b.rate = float64(rate)
	b.reinitialize()
}

func (b *backend) ChangeBlockSize(size int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if size == b.blockSize {
		return
	}
	b.blockSize = size
	b.ctx.Resize(size)
	b.reinitialize()
}

// reinitialize runs Initialize with the processor deactivated, restoring
// the previous activation afterwards.
func (b *backend) reinitialize() {
	wasActive := b.active
	b.deactivate()
	if err := b.proc.Initialize(b.rate, b.blockSize); err != nil {
		b.log.Warn("failed to reinitialize",
			zap.Float64("sample_rate", b.rate),
			zap.Int("block_size", b.blockSize),
			zap.Error(err))
	}
	if wasActive {
		if err := b.setActive(true); err != nil {
			b.log.Warn("failed to reactivate", zap.Error(err))
		}
	}
}

func (b *backend) IOConfiguration() bus.IOConfiguration {
	return b.proc.Buses()
}

func (b *backend) Latency() int {
	return b.proc.LatencySamples()
}

func (b *backend) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{Reconfigure: plugin.ReconfigureOnMainThread}
}

func (b *backend) SetTrackDetails(track *plugin.Track) error {
	t, ok := b.proc.(TrackAware)
	if !ok {
		return errors.Unsupported("native.SetTrackDetails", "track details")
	}
	t.SetTrack(track)
	return nil
}

func (b *backend) Close() error {
	b.HideEditor()

	b.resume.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.deactivate()
	b.closed = true
	return nil
}

var (
	_ plugin.Backend            = (*backend)(nil)
	_ plugin.EditorUpdater      = (*backend)(nil)
	_ plugin.TrackDetailsSetter = (*backend)(nil)
)
