package plugin

import (
	"io"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/heapless"
	"github.com/justyntemme/plughost/pkg/ringbuf"
	"github.com/justyntemme/plughost/pkg/threadcheck"
)

// MaxBlockEvents is the number of host events one Process call can pass to a
// backend, counting both caller events and queued ones.
const MaxBlockEvents = 512

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
// Instances pick it up when they are loaded.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Instance is a loaded plugin. Process is called from the realtime thread;
// every other method belongs to the main thread. Latency and CachedLatency
// may be read from anywhere.
type Instance struct {
	// ID distinguishes instances of the same plugin in logs.
	ID uuid.UUID
	// Window is the caller's editor window. HideEditor closes it if it
	// implements io.Closer and clears the slot.
	Window any

	descriptor Descriptor
	backend    Backend
	caps       Capabilities
	log        *zap.Logger

	events  *ringbuf.Consumer[event.PluginEvent]
	queueIn *ringbuf.Producer[event.HostEvent]
	queue   *ringbuf.Consumer[event.HostEvent]

	io      atomic.Pointer[bus.IOConfiguration]
	latency atomic.Int64

	resumed    atomic.Bool
	editorOpen bool
	editorSize Size
	closed     bool

	// requested values are written by either thread; applied values belong
	// to whichever thread the backend reconfigures on
	requestedRate      atomic.Int64
	requestedBlockSize atomic.Int64
	appliedRate        int64
	appliedBlockSize   int64

	// last values carried by ProcessDetails, audio thread only
	seenRate      int64
	seenBlockSize int64

	details ProcessDetails
	scratch heapless.Vec[event.HostEvent, [MaxBlockEvents]event.HostEvent]
	deduper event.Deduper

	eventOverflow atomic.Uint64
	dedupOverflow atomic.Uint64
}

func newInstance(backend Backend, desc Descriptor, events *ringbuf.Consumer[event.PluginEvent], queueCapacity int) *Instance {
	if queueCapacity <= 0 {
		queueCapacity = ringbuf.DefaultCapacity
	}
	in := &Instance{
		ID:         uuid.New(),
		descriptor: desc,
		backend:    backend,
		caps:       backend.Capabilities(),
		events:     events,
		details:    DefaultProcessDetails(),
	}
	in.queueIn, in.queue = ringbuf.New[event.HostEvent](queueCapacity)
	in.log = Logger().With(
		zap.String("instance", in.ID.String()),
		zap.String("plugin", desc.Name))

	cfg := backend.IOConfiguration()
	in.io.Store(&cfg)
	in.latency.Store(int64(backend.Latency()))
	return in
}

func (d Descriptor) fields() []zap.Field {
	return []zap.Field{
		zap.String("name", d.Name),
		zap.String("id", d.ID),
		zap.String("vendor", d.Vendor),
		zap.String("version", d.Version),
		zap.String("path", d.Path),
		zap.Stringer("format", d.Format),
		zap.Int("initial_latency", d.InitialLatency),
	}
}

// Process runs one block. Buffers must match the cached IO configuration
// exactly; a mismatch is a caller bug and panics with an
// errors.ErrConfigurationMismatch error.
//
// Events are sorted by offset and, unless the backend handles automation
// within a block, reduced to the last value per parameter. Events queued with
// QueueEvent are delivered ahead of events with the same offset. details may
// be nil, in which case the last requested sample rate and block size are
// reported.
//
// A sample rate or block size in details counts as a request only when it
// differs from the previous call's, so a host passing the same details every
// block does not undo SetSampleRate or SetBlockSize. The most recent change
// from either source wins.
//
// The first call resumes the plugin. Process does not allocate.
func (in *Instance) Process(inputs, outputs []bus.AudioBus, events []event.HostEvent, details *ProcessDetails) {
	threadcheck.EnsureNotMain("Instance.Process")

	if err := in.io.Load().Matches(inputs, outputs); err != nil {
		panic(err)
	}

	in.scratch.Clear()
	for {
		ev, ok := in.queue.TryPop()
		if !ok {
			break
		}
		if in.scratch.Push(ev) != nil {
			in.eventOverflow.Add(1)
		}
	}
	for i := range events {
		if in.scratch.Push(events[i]) != nil {
			in.eventOverflow.Add(1)
		}
	}
	ordered := in.deduper.Prepare(in.scratch.Slice(), in.caps.SampleAccurateAutomation)
	if in.deduper.Overflow != 0 {
		in.dedupOverflow.Add(in.deduper.Overflow)
		in.deduper.Overflow = 0
	}

	if details != nil {
		in.observe(details)
	} else {
		if rate := in.requestedRate.Load(); rate > 0 {
			in.details.SampleRate = int(rate)
		}
		if size := in.requestedBlockSize.Load(); size > 0 {
			in.details.BlockSize = int(size)
		}
		details = &in.details
	}
	if in.caps.Reconfigure == ReconfigureOnAudioThread {
		in.applyConfiguration()
	}

	in.Resume()
	in.backend.Process(inputs, outputs, ordered, details)
}

func (in *Instance) request(rate, blockSize int64) {
	if rate > 0 {
		in.requestedRate.Store(rate)
	}
	if blockSize > 0 {
		in.requestedBlockSize.Store(blockSize)
	}
}

// observe turns changes in the caller's details into requests. The first
// details seen only fill in values the main thread has not requested.
func (in *Instance) observe(details *ProcessDetails) {
	if rate := int64(details.SampleRate); rate > 0 && rate != in.seenRate {
		if in.seenRate == 0 {
			in.requestedRate.CompareAndSwap(0, rate)
		} else {
			in.requestedRate.Store(rate)
		}
		in.seenRate = rate
	}
	if size := int64(details.BlockSize); size > 0 && size != in.seenBlockSize {
		if in.seenBlockSize == 0 {
			in.requestedBlockSize.CompareAndSwap(0, size)
		} else {
			in.requestedBlockSize.Store(size)
		}
		in.seenBlockSize = size
	}
}

// applyConfiguration hands the backend any requested value that differs from
// the last one it received.
func (in *Instance) applyConfiguration() {
	if rate := in.requestedRate.Load(); rate > 0 && rate != in.appliedRate {
		in.appliedRate = rate
		in.backend.ChangeSampleRate(int(rate))
	}
	if size := in.requestedBlockSize.Load(); size > 0 && size != in.appliedBlockSize {
		in.appliedBlockSize = size
		in.backend.ChangeBlockSize(int(size))
	}
}

// SetSampleRate records a new sample rate. The backend sees it at the start
// of the next Process or GetEvents call, depending on where it reconfigures.
// It stays in effect until the rate in ProcessDetails changes.
func (in *Instance) SetSampleRate(rate int) {
	threadcheck.EnsureMain("Instance.SetSampleRate")
	in.request(int64(rate), 0)
}

// SetBlockSize records a new maximum block size, applied like SetSampleRate.
func (in *Instance) SetBlockSize(size int) {
	threadcheck.EnsureMain("Instance.SetBlockSize")
	in.request(0, int64(size))
}

// QueueEvent schedules a host event for the next Process call. It fails when
// the queue is full.
func (in *Instance) QueueEvent(ev event.HostEvent) error {
	threadcheck.EnsureMain("Instance.QueueEvent")
	if !in.queueIn.TryPush(ev) {
		return errors.CapacityExceeded("Instance.QueueEvent", in.queueIn.Cap())
	}
	return nil
}

// GetEvents drains the plugin's notifications. For every
// ConfigurationChanged the IO configuration and latency are queried again
// and a ChangeLatency carrying the new latency is emitted just before it.
func (in *Instance) GetEvents() []event.PluginEvent {
	return in.AppendEvents(nil)
}

// AppendEvents is GetEvents appending to dst.
func (in *Instance) AppendEvents(dst []event.PluginEvent) []event.PluginEvent {
	threadcheck.EnsureMain("Instance.GetEvents")

	if u, ok := in.backend.(EditorUpdater); ok {
		u.FlushEditorUpdates()
	}
	if in.caps.Reconfigure == ReconfigureOnMainThread {
		in.applyConfiguration()
	}

	for {
		ev, ok := in.events.TryPop()
		if !ok {
			break
		}
		switch ev.Kind {
		case event.ConfigurationChanged:
			in.refreshIO()
			dst = append(dst, event.LatencyChanged(in.queryLatency()))
		case event.ResizeWindow:
			if in.editorOpen {
				in.editorSize = Size{Width: ev.Width, Height: ev.Height}
			}
		}
		dst = append(dst, ev)
	}

	in.reportLosses()
	return dst
}

func (in *Instance) reportLosses() {
	dropped := in.events.TakeDropped()
	overflow := in.eventOverflow.Swap(0)
	dedup := in.dedupOverflow.Swap(0)
	if dropped == 0 && overflow == 0 && dedup == 0 {
		return
	}
	in.log.Warn("events lost since last drain",
		zap.Uint64("notifications_dropped", dropped),
		zap.Uint64("host_events_dropped", overflow),
		zap.Uint64("dedup_untracked", dedup))
}

// Latency queries the backend, caches the result and returns it. It must be
// called on the main thread; use CachedLatency elsewhere.
func (in *Instance) Latency() int {
	threadcheck.EnsureMain("Instance.Latency")
	return in.queryLatency()
}

func (in *Instance) queryLatency() int {
	l := in.backend.Latency()
	in.latency.Store(int64(l))
	return l
}

// CachedLatency returns the latency from the last query without calling the
// backend. It is safe from any thread.
func (in *Instance) CachedLatency() int {
	return int(in.latency.Load())
}

// IOConfiguration queries the backend and replaces the cached layout.
func (in *Instance) IOConfiguration() bus.IOConfiguration {
	threadcheck.EnsureMain("Instance.IOConfiguration")
	return in.refreshIO()
}

func (in *Instance) refreshIO() bus.IOConfiguration {
	cfg := in.backend.IOConfiguration()
	in.io.Store(&cfg)
	return cfg
}

// CachedIOConfiguration returns the layout Process validates against.
func (in *Instance) CachedIOConfiguration() bus.IOConfiguration {
	return *in.io.Load()
}

// Resume activates the plugin. It does nothing when already resumed.
func (in *Instance) Resume() {
	if in.resumed.CompareAndSwap(false, true) {
		in.backend.Resume()
	}
}

// Suspend deactivates the plugin. It does nothing when already suspended.
func (in *Instance) Suspend() {
	threadcheck.EnsureMain("Instance.Suspend")
	in.suspend()
}

func (in *Instance) suspend() {
	if in.resumed.CompareAndSwap(true, false) {
		in.backend.Suspend()
	}
}

// IsResumed reports whether the plugin is active.
func (in *Instance) IsResumed() bool {
	return in.resumed.Load()
}

// Descriptor returns the plugin's identity.
func (in *Instance) Descriptor() Descriptor {
	return in.descriptor
}

// Capabilities returns what the backend declared at load time.
func (in *Instance) Capabilities() Capabilities {
	return in.caps
}

// PresetData returns the plugin's state as an opaque blob.
func (in *Instance) PresetData() ([]byte, error) {
	threadcheck.EnsureMain("Instance.PresetData")
	return in.backend.PresetData()
}

// SetPresetData restores a blob returned by PresetData.
func (in *Instance) SetPresetData(data []byte) error {
	threadcheck.EnsureMain("Instance.SetPresetData")
	return in.backend.SetPresetData(data)
}

// PresetName returns the name of the plugin's built-in preset id.
func (in *Instance) PresetName(id int32) (string, error) {
	threadcheck.EnsureMain("Instance.PresetName")
	return in.backend.PresetName(id)
}

// SetPreset switches to a built-in preset.
func (in *Instance) SetPreset(id int32) error {
	threadcheck.EnsureMain("Instance.SetPreset")
	return in.backend.SetPreset(id)
}

// Parameter returns the parameter at index.
func (in *Instance) Parameter(index int32) (param.Info, error) {
	threadcheck.EnsureMain("Instance.Parameter")
	return in.backend.Parameter(index)
}

// ParameterCount returns the number of parameters, hidden ones included.
func (in *Instance) ParameterCount() int {
	threadcheck.EnsureMain("Instance.ParameterCount")
	return in.backend.ParameterCount()
}

// AllParameters returns every parameter that is not hidden, in index order.
func (in *Instance) AllParameters() ([]param.Info, error) {
	threadcheck.EnsureMain("Instance.AllParameters")
	count := in.backend.ParameterCount()
	params := make([]param.Info, 0, count)
	for i := 0; i < count; i++ {
		info, err := in.backend.Parameter(int32(i))
		if err != nil {
			return nil, err
		}
		if info.Hidden {
			continue
		}
		params = append(params, info)
	}
	return params, nil
}

// ShowEditor opens the plugin editor inside window. Only one editor may be
// open per instance; a second call fails with errors.ErrAlreadyOpen without
// reaching the backend.
func (in *Instance) ShowEditor(window unsafe.Pointer, kind WindowType) (Size, error) {
	threadcheck.EnsureMain("Instance.ShowEditor")
	if in.editorOpen {
		return Size{}, errors.New(errors.KindAlreadyOpen, "Instance.ShowEditor", "editor is already open")
	}
	size, err := in.backend.ShowEditor(window, kind)
	if err != nil {
		return Size{}, err
	}
	in.editorOpen = true
	in.editorSize = size
	return size, nil
}

// HideEditor closes the editor and releases Window. It does nothing when the
// editor is closed.
func (in *Instance) HideEditor() {
	threadcheck.EnsureMain("Instance.HideEditor")
	in.hideEditor()
}

func (in *Instance) hideEditor() {
	if !in.editorOpen {
		return
	}
	in.backend.HideEditor()
	in.editorOpen = false
	in.editorSize = Size{}

	if c, ok := in.Window.(io.Closer); ok {
		if err := c.Close(); err != nil {
			in.log.Warn("failed to close editor window", zap.Error(err))
		}
	}
	in.Window = nil
}

// IsShowingEditor reports whether the editor is open.
func (in *Instance) IsShowingEditor() bool {
	return in.editorOpen
}

// EditorSize returns the size of the open editor, zero when closed.
func (in *Instance) EditorSize() Size {
	return in.editorSize
}

// SetTrackDetails tells the plugin which track it sits on.
func (in *Instance) SetTrackDetails(track *Track) error {
	threadcheck.EnsureMain("Instance.SetTrackDetails")
	s, ok := in.backend.(TrackDetailsSetter)
	if !ok {
		return errors.Unsupported("Instance.SetTrackDetails", "track details")
	}
	return s.SetTrackDetails(track)
}

// Close hides the editor, suspends the plugin and releases the backend. The
// instance must not be used afterwards. Further calls return nil.
func (in *Instance) Close() error {
	threadcheck.EnsureMain("Instance.Close")
	if in.closed {
		return nil
	}
	in.closed = true

	in.hideEditor()
	in.suspend()
	in.reportLosses()

	if err := in.backend.Close(); err != nil {
		return err
	}
	in.log.Debug("plugin closed")
	return nil
}
