package plugin

import (
	stderrors "errors"
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"github.com/justyntemme/plughost/pkg/errors"
	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/ringbuf"
	"github.com/justyntemme/plughost/pkg/threadcheck"
)

type fakeBackend struct {
	notify  *ringbuf.Producer[event.PluginEvent]
	io      bus.IOConfiguration
	latency int
	caps    Capabilities
	params  []param.Info

	record    bool
	seen      []event.HostEvent
	onProcess func()
	onFlush   func()

	resumes, suspends, shows, hides, closes int
	rates, sizes                            []int
}

func (f *fakeBackend) Process(inputs, outputs []bus.AudioBus, events []event.HostEvent, details *ProcessDetails) {
	if f.record {
		f.seen = append(f.seen[:0], events...)
	}
	if f.onProcess != nil {
		f.onProcess()
	}
}

func (f *fakeBackend) PresetData() ([]byte, error)        { return []byte("blob"), nil }
func (f *fakeBackend) SetPresetData(data []byte) error    { return nil }
func (f *fakeBackend) PresetName(id int32) (string, error) { return "Init", nil }
func (f *fakeBackend) SetPreset(id int32) error           { return nil }

func (f *fakeBackend) Parameter(index int32) (param.Info, error) {
	if int(index) >= len(f.params) {
		return param.Info{}, errors.NotFound("fake.Parameter", "parameter", "index")
	}
	return f.params[index], nil
}

func (f *fakeBackend) ParameterCount() int { return len(f.params) }

func (f *fakeBackend) ShowEditor(window unsafe.Pointer, kind WindowType) (Size, error) {
	f.shows++
	return Size{Width: 640, Height: 480}, nil
}

func (f *fakeBackend) HideEditor()                          { f.hides++ }
func (f *fakeBackend) Suspend()                             { f.suspends++ }
func (f *fakeBackend) Resume()                              { f.resumes++ }
func (f *fakeBackend) ChangeSampleRate(rate int)            { f.rates = append(f.rates, rate) }
func (f *fakeBackend) ChangeBlockSize(size int)             { f.sizes = append(f.sizes, size) }
func (f *fakeBackend) IOConfiguration() bus.IOConfiguration { return f.io }
func (f *fakeBackend) Latency() int                         { return f.latency }
func (f *fakeBackend) Capabilities() Capabilities           { return f.caps }
func (f *fakeBackend) Close() error                         { f.closes++; return nil }

type updatingBackend struct {
	*fakeBackend
}

func (u updatingBackend) FlushEditorUpdates() {
	if u.onFlush != nil {
		u.onFlush()
	}
}

func newFake(cfg bus.IOConfiguration) (*fakeBackend, *ringbuf.Consumer[event.PluginEvent]) {
	p, c := ringbuf.New[event.PluginEvent](ringbuf.DefaultCapacity)
	return &fakeBackend{notify: p, io: cfg}, c
}

func newTestInstance(f Backend, c *ringbuf.Consumer[event.PluginEvent]) *Instance {
	return newInstance(f, Descriptor{Name: "Fake", ID: "fake"}, c, 0)
}

func TestProcessRejectsMismatchedBuffers(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)

	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)
	in.Process(inputs, outputs, nil, nil)

	tests := []struct {
		name    string
		inputs  []bus.AudioBus
		outputs []bus.AudioBus
	}{
		{"missing input bus", nil, outputs},
		{"mono input", []bus.AudioBus{bus.NewAudioBus(1, 64)}, outputs},
		{"extra output bus", inputs, append([]bus.AudioBus{bus.NewAudioBus(2, 64)}, outputs...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !stderrors.Is(err, errors.ErrConfigurationMismatch) {
					t.Errorf("Expected configuration mismatch panic, got %v", r)
				}
			}()
			in.Process(tt.inputs, tt.outputs, nil, nil)
		})
	}
}

func TestProcessOrdersAndDeduplicates(t *testing.T) {
	events := func() []event.HostEvent {
		return []event.HostEvent{
			event.Parameter(10, param.NewUpdate(1, 0.1)),
			event.Midi(5, [3]byte{0x90, 60, 100}),
			event.Parameter(30, param.NewUpdate(1, 0.3)),
			event.Parameter(0, param.NewUpdate(2, 0.5)),
			event.Parameter(30, param.NewUpdate(1, 0.4)),
		}
	}

	t.Run("last value per parameter", func(t *testing.T) {
		f, c := newFake(bus.NewEffectStereo())
		f.record = true
		in := newTestInstance(f, c)
		inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

		in.Process(inputs, outputs, events(), nil)

		if len(f.seen) != 3 {
			t.Fatalf("Expected 3 events after dedup, got %d", len(f.seen))
		}
		wantOffsets := []int{0, 5, 30}
		for i, ev := range f.seen {
			if ev.Offset != wantOffsets[i] {
				t.Errorf("Event %d: expected offset %d, got %d", i, wantOffsets[i], ev.Offset)
			}
		}
		if last := f.seen[2].Parameter; last.ID != 1 || last.Value != 0.4 {
			t.Errorf("Expected parameter 1 to end at 0.4, got id %d value %v", last.ID, last.Value)
		}
	})

	t.Run("sample accurate keeps every value", func(t *testing.T) {
		f, c := newFake(bus.NewEffectStereo())
		f.record = true
		f.caps.SampleAccurateAutomation = true
		in := newTestInstance(f, c)
		inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

		in.Process(inputs, outputs, events(), nil)

		if len(f.seen) != 5 {
			t.Fatalf("Expected all 5 events, got %d", len(f.seen))
		}
		for i := 1; i < len(f.seen); i++ {
			if f.seen[i].Offset < f.seen[i-1].Offset {
				t.Errorf("Events out of order at %d: %d after %d", i, f.seen[i].Offset, f.seen[i-1].Offset)
			}
		}
		if f.seen[3].Parameter.Value != 0.3 || f.seen[4].Parameter.Value != 0.4 {
			t.Error("Expected equal offsets to keep submission order")
		}
	})
}

func TestQueuedEventsReachNextBlock(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	f.record = true
	in := newTestInstance(f, c)
	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

	if err := in.QueueEvent(event.Parameter(0, param.NewUpdate(7, 0.25))); err != nil {
		t.Fatalf("QueueEvent failed: %v", err)
	}
	in.Process(inputs, outputs, []event.HostEvent{event.Parameter(0, param.NewUpdate(7, 0.75))}, nil)

	if len(f.seen) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(f.seen))
	}
	if f.seen[0].Parameter.Value != 0.75 {
		t.Errorf("Expected the caller's value to win over the queued one, got %v", f.seen[0].Parameter.Value)
	}

	in.Process(inputs, outputs, nil, nil)
	if len(f.seen) != 0 {
		t.Errorf("Expected queued events to be delivered once, got %d", len(f.seen))
	}
}

func TestQueueEventFull(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newInstance(f, Descriptor{}, c, 2)

	for i := 0; i < 2; i++ {
		if err := in.QueueEvent(event.Midi(0, [3]byte{0x90, 60, 1})); err != nil {
			t.Fatalf("QueueEvent %d failed: %v", i, err)
		}
	}
	err := in.QueueEvent(event.Midi(0, [3]byte{0x90, 60, 1}))
	if !stderrors.Is(err, errors.ErrCapacityExceeded) {
		t.Errorf("Expected capacity error, got %v", err)
	}
}

func TestResumeSuspend(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)
	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

	if in.IsResumed() {
		t.Error("Expected a new instance to be suspended")
	}
	for i := 0; i < 3; i++ {
		in.Process(inputs, outputs, nil, nil)
	}
	if f.resumes != 1 || !in.IsResumed() {
		t.Errorf("Expected exactly one resume, got %d", f.resumes)
	}

	in.Suspend()
	in.Suspend()
	if f.suspends != 1 {
		t.Errorf("Expected exactly one suspend, got %d", f.suspends)
	}

	in.Process(inputs, outputs, nil, nil)
	if f.resumes != 2 {
		t.Errorf("Expected processing to resume again, got %d resumes", f.resumes)
	}
}

func TestConfigurationChangedSynthesizesLatency(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)
	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

	f.onProcess = func() {
		f.io = bus.NewMonoToStereo()
		f.latency = 128
		f.notify.TryPush(event.Notify(event.ConfigurationChanged))
		f.onProcess = nil
	}
	in.Process(inputs, outputs, nil, nil)

	got := in.GetEvents()
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %v", got)
	}
	if got[0].Kind != event.ChangeLatency || got[0].Samples != 128 {
		t.Errorf("Expected change_latency(128) first, got %v", got[0])
	}
	if got[1].Kind != event.ConfigurationChanged {
		t.Errorf("Expected configuration_changed second, got %v", got[1])
	}

	if in.CachedLatency() != 128 {
		t.Errorf("Expected cached latency 128, got %d", in.CachedLatency())
	}
	cfg := in.CachedIOConfiguration()
	if cfg.Inputs.Len() != 1 || cfg.InputChannels(0) != 1 || cfg.OutputChannels(0) != 2 {
		t.Errorf("Expected mono in, stereo out, got %d inputs", cfg.Inputs.Len())
	}

	monoIn, stereoOut := bus.NewMonoToStereo().AllocateBuffers(64)
	in.Process(monoIn, stereoOut, nil, nil)

	if len(in.GetEvents()) != 0 {
		t.Error("Expected the channel to be empty after draining")
	}
}

func TestReconfigurationTiming(t *testing.T) {
	t.Run("audio thread", func(t *testing.T) {
		f, c := newFake(bus.NewEffectStereo())
		f.caps.Reconfigure = ReconfigureOnAudioThread
		in := newTestInstance(f, c)
		inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

		in.SetSampleRate(48000)
		in.GetEvents()
		if len(f.rates) != 0 {
			t.Fatalf("Expected no change before Process, got %v", f.rates)
		}

		in.Process(inputs, outputs, nil, nil)
		in.Process(inputs, outputs, nil, nil)
		if len(f.rates) != 1 || f.rates[0] != 48000 {
			t.Errorf("Expected one change to 48000, got %v", f.rates)
		}
		if len(f.sizes) != 0 {
			t.Errorf("Expected no block size change, got %v", f.sizes)
		}
	})

	t.Run("main thread", func(t *testing.T) {
		f, c := newFake(bus.NewEffectStereo())
		f.caps.Reconfigure = ReconfigureOnMainThread
		in := newTestInstance(f, c)
		inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

		details := DefaultProcessDetails()
		details.SampleRate = 96000
		details.BlockSize = 256
		in.Process(inputs, outputs, nil, &details)
		if len(f.rates) != 0 || len(f.sizes) != 0 {
			t.Fatal("Expected no change on the audio thread")
		}

		in.GetEvents()
		in.GetEvents()
		if len(f.rates) != 1 || f.rates[0] != 96000 {
			t.Errorf("Expected one change to 96000, got %v", f.rates)
		}
		if len(f.sizes) != 1 || f.sizes[0] != 256 {
			t.Errorf("Expected one change to 256, got %v", f.sizes)
		}
	})

	t.Run("setter survives unchanged details", func(t *testing.T) {
		f, c := newFake(bus.NewEffectStereo())
		f.caps.Reconfigure = ReconfigureOnMainThread
		in := newTestInstance(f, c)
		inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)
		details := DefaultProcessDetails()

		in.SetSampleRate(48000)
		in.Process(inputs, outputs, nil, &details)
		in.GetEvents()
		in.Process(inputs, outputs, nil, &details)
		in.GetEvents()
		if len(f.rates) != 1 || f.rates[0] != 48000 {
			t.Errorf("Expected one change to 48000, got %v", f.rates)
		}
		if len(f.sizes) != 1 || f.sizes[0] != details.BlockSize {
			t.Errorf("Expected block size from details, got %v", f.sizes)
		}

		in.SetBlockSize(1024)
		in.Process(inputs, outputs, nil, &details)
		in.GetEvents()
		if len(f.sizes) != 2 || f.sizes[1] != 1024 {
			t.Errorf("Expected block size 1024 after the setter, got %v", f.sizes)
		}

		details.SampleRate = 96000
		in.Process(inputs, outputs, nil, &details)
		in.GetEvents()
		if len(f.rates) != 2 || f.rates[1] != 96000 {
			t.Errorf("Expected a later details change to win, got %v", f.rates)
		}
	})
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestEditorGate(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)

	in.HideEditor()
	if f.hides != 0 {
		t.Error("Expected HideEditor on a closed editor to be a no-op")
	}

	size, err := in.ShowEditor(nil, ThisPlatform())
	if err != nil {
		t.Fatalf("ShowEditor failed: %v", err)
	}
	if size.Width != 640 || size.Height != 480 || in.EditorSize() != size {
		t.Errorf("Expected 640x480, got %v", size)
	}
	window := &closer{}
	in.Window = window

	_, err = in.ShowEditor(nil, ThisPlatform())
	if !stderrors.Is(err, errors.ErrAlreadyOpen) {
		t.Errorf("Expected already open error, got %v", err)
	}
	if f.shows != 1 {
		t.Errorf("Expected the backend to be asked once, got %d", f.shows)
	}

	in.HideEditor()
	in.HideEditor()
	if f.hides != 1 {
		t.Errorf("Expected one hide, got %d", f.hides)
	}
	if !window.closed || in.Window != nil {
		t.Error("Expected the window to be closed and released")
	}
	if in.IsShowingEditor() {
		t.Error("Expected editor to be closed")
	}
}

func TestAllParametersSkipsHidden(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	f.params = []param.Info{
		{ID: 1, Name: "Gain", Index: 0},
		{ID: 2, Name: "Internal", Index: 1, Hidden: true},
		{ID: 3, Name: "Mix", Index: 2},
	}
	in := newTestInstance(f, c)

	all, err := in.AllParameters()
	if err != nil {
		t.Fatalf("AllParameters failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Gain" || all[1].Name != "Mix" {
		t.Errorf("Expected Gain and Mix, got %v", all)
	}
	if in.ParameterCount() != 3 {
		t.Errorf("Expected count to include hidden parameters, got %d", in.ParameterCount())
	}
}

func TestEditorUpdatesFlushedBeforeDrain(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	f.onFlush = func() {
		f.notify.TryPush(event.ParameterChanged(param.NewUpdate(4, 0.5)))
	}
	in := newTestInstance(updatingBackend{f}, c)

	got := in.GetEvents()
	if len(got) != 1 || got[0].Kind != event.ParameterUpdate || got[0].Parameter.ID != 4 {
		t.Errorf("Expected the flushed parameter update, got %v", got)
	}
}

func TestSetTrackDetailsUnsupported(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)

	track, err := NewTrack("Drums", Colour{R: 255, A: 255})
	if err != nil {
		t.Fatalf("NewTrack failed: %v", err)
	}
	if err := in.SetTrackDetails(&track); !stderrors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Expected unsupported error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)
	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

	in.Process(inputs, outputs, nil, nil)
	if _, err := in.ShowEditor(nil, WindowOther); err != nil {
		t.Fatalf("ShowEditor failed: %v", err)
	}

	if err := in.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if f.hides != 1 || f.suspends != 1 || f.closes != 1 {
		t.Errorf("Expected one hide, suspend and close, got %d, %d, %d", f.hides, f.suspends, f.closes)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)
	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)
	events := []event.HostEvent{
		event.Parameter(40, param.NewUpdate(1, 0.2)),
		event.Midi(3, [3]byte{0x90, 64, 90}),
		event.Parameter(12, param.NewUpdate(1, 0.9)),
	}
	details := DefaultProcessDetails()

	allocs := testing.AllocsPerRun(100, func() {
		in.Process(inputs, outputs, events, &details)
	})
	if allocs != 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}

func TestThreadDisciplineReports(t *testing.T) {
	if !threadcheck.MarkCurrentAsMain() {
		t.Skip("main thread already marked by an earlier run")
	}

	var mu sync.Mutex
	var reports []string
	threadcheck.SetReporter(func(function, message string) {
		mu.Lock()
		reports = append(reports, function)
		mu.Unlock()
	})
	defer threadcheck.SetReporter(nil)

	f, c := newFake(bus.NewEffectStereo())
	in := newTestInstance(f, c)
	inputs, outputs := bus.NewEffectStereo().AllocateBuffers(64)

	in.GetEvents()
	if len(reports) != 0 {
		t.Fatalf("Expected no report on the main thread, got %v", reports)
	}

	in.Process(inputs, outputs, nil, nil)
	if len(reports) != 1 || reports[0] != "Instance.Process" {
		t.Errorf("Expected one report for Process, got %v", reports)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		in.GetEvents()
	}()
	wg.Wait()

	mu.Lock()
	if len(reports) != 2 || reports[1] != "Instance.GetEvents" {
		t.Errorf("Expected one report for GetEvents off the main thread, got %v", reports)
	}
	mu.Unlock()

	f.latency = 32
	wg.Add(1)
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if got := in.CachedLatency(); got != 0 {
			t.Errorf("Expected cached latency 0, got %d", got)
		}
		in.Latency()
	}()
	wg.Wait()

	mu.Lock()
	if len(reports) != 3 || reports[2] != "Instance.Latency" {
		t.Errorf("Expected one report for Latency off the main thread, got %v", reports)
	}
	mu.Unlock()

	got := in.Latency()
	mu.Lock()
	defer mu.Unlock()
	if got != 32 || len(reports) != 3 {
		t.Errorf("Expected Latency on the main thread to return 32 without a report, got %d, %v", got, reports)
	}
}
