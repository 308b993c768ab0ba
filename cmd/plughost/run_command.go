package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/plughost/pkg/event"
	"github.com/justyntemme/plughost/pkg/framework/debug"
	"github.com/justyntemme/plughost/pkg/framework/param"
	"github.com/justyntemme/plughost/pkg/midi"
	"github.com/justyntemme/plughost/pkg/plugin"
)

type runOptions struct {
	id     string
	blocks int
	notes  []int
	sets   []string
	editor bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Process silent blocks through a plugin and print its notifications",
		Long: `Process silent blocks through a plugin on a separate audio goroutine.
Host events given with --note and --set are queued before the first block.
After each block the plugin's notifications are drained and printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.blocks < 1 {
				return fmt.Errorf("--blocks must be at least 1")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			in, err := ctx.load(args[0], opts.id)
			if err != nil {
				return err
			}
			defer in.Close()

			if err := queueEvents(in, opts); err != nil {
				return err
			}
			if opts.editor {
				if _, err := in.ShowEditor(nil, plugin.ThisPlatform()); err != nil {
					return fmt.Errorf("show editor: %w", err)
				}
			}

			details := cfg.ProcessDetails()
			profiler := debug.NewProfiler(opts.blocks)
			log := drive(in, &details, opts.blocks, profiler)

			out := cmd.OutOrStdout()
			writeEvents(out, log)
			writeStats(out, profiler)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.id, "id", "", "Plugin id inside a multi-plugin file")
	cmd.Flags().IntVarP(&opts.blocks, "blocks", "n", 8, "Number of blocks to process")
	cmd.Flags().IntSliceVar(&opts.notes, "note", nil, "Queue a note-on for this key (repeatable)")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "Queue a parameter change as id=normalized (repeatable)")
	cmd.Flags().BoolVar(&opts.editor, "editor", false, "Open the editor while processing")
	return cmd
}

func queueEvents(in *plugin.Instance, opts runOptions) error {
	for _, key := range opts.notes {
		if key < 0 || key > 127 {
			return fmt.Errorf("note %d is outside 0-127", key)
		}
		if err := in.QueueEvent(midi.NoteOn(0, 0, uint8(key), 100)); err != nil {
			return err
		}
	}
	for _, set := range opts.sets {
		u, err := parseSet(set)
		if err != nil {
			return err
		}
		if err := in.QueueEvent(event.Parameter(0, u)); err != nil {
			return err
		}
	}
	return nil
}

func parseSet(s string) (param.Update, error) {
	idText, valueText, ok := strings.Cut(s, "=")
	if !ok {
		return param.Update{}, fmt.Errorf("--set %q: want id=value", s)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idText), 10, 32)
	if err != nil {
		return param.Update{}, fmt.Errorf("--set %q: bad id: %w", s, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueText), 32)
	if err != nil {
		return param.Update{}, fmt.Errorf("--set %q: bad value: %w", s, err)
	}
	if value < 0 || value > 1 {
		return param.Update{}, fmt.Errorf("--set %q: value must be normalized to 0-1", s)
	}
	return param.NewUpdate(int32(id), float32(value)), nil
}

type blockEvents struct {
	block  int
	events []event.PluginEvent
}

// drive processes blocks on its own goroutine, handing control back after
// each one so notifications are drained on the calling goroutine. Buffers
// are reallocated whenever the plugin changes its layout.
func drive(in *plugin.Instance, details *plugin.ProcessDetails, blocks int, profiler *debug.Profiler) []blockEvents {
	cfg := in.CachedIOConfiguration()
	inputs, outputs := cfg.AllocateBuffers(details.BlockSize)

	next := make(chan struct{})
	done := make(chan struct{})
	go func() {
		for range next {
			start := time.Now()
			in.Process(inputs, outputs, nil, details)
			profiler.Record("process", time.Since(start))
			details.PlayerTime += float64(details.BlockSize) / float64(details.SampleRate) * details.Tempo / 60
			done <- struct{}{}
		}
	}()
	defer close(next)

	var log []blockEvents
	for i := 0; i < blocks; i++ {
		next <- struct{}{}
		<-done

		evs := in.GetEvents()
		if len(evs) > 0 {
			log = append(log, blockEvents{block: i, events: evs})
		}
		for _, ev := range evs {
			if ev.Kind == event.ConfigurationChanged {
				cfg = in.CachedIOConfiguration()
				inputs, outputs = cfg.AllocateBuffers(details.BlockSize)
			}
		}
	}
	return log
}

func writeEvents(out io.Writer, log []blockEvents) {
	if len(log) == 0 {
		fmt.Fprintln(out, "No notifications")
		return
	}
	var rows [][]string
	for _, b := range log {
		for _, ev := range b.events {
			rows = append(rows, []string{strconv.Itoa(b.block), ev.Kind.String(), ev.String()})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Block", "Kind", "Event"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
	))
}

func writeStats(out io.Writer, profiler *debug.Profiler) {
	var rows [][]string
	for _, s := range profiler.All() {
		rows = append(rows, []string{
			s.Name,
			strconv.FormatUint(s.Count, 10),
			s.Average().String(),
			s.P99.String(),
			s.Max.String(),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Call", "Count", "Average", "P99", "Max"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}
