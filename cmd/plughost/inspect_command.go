package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justyntemme/plughost/pkg/framework/bus"
	"github.com/justyntemme/plughost/pkg/plugin"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var id string
	var all bool

	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Load a plugin and show its buses, latency and parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := ctx.load(args[0], id)
			if err != nil {
				return err
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, descriptorTable([]plugin.Descriptor{in.Descriptor()}))

			cfg := in.IOConfiguration()
			fmt.Fprintln(out, busTable(&cfg))
			fmt.Fprintf(out, "Latency: %d samples\n", in.Latency())
			fmt.Fprintf(out, "Event inputs: %d\n", cfg.EventInputs)

			return writeParameters(out, in, all)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Plugin id inside a multi-plugin file")
	cmd.Flags().BoolVar(&all, "all", false, "Include hidden parameters")
	return cmd
}

func busTable(cfg *bus.IOConfiguration) string {
	var rows [][]string
	add := func(dir string, buses *bus.Buses) {
		for i, b := range buses.Slice() {
			rows = append(rows, []string{dir, strconv.Itoa(i), b.Name, strconv.Itoa(b.Channels)})
		}
	}
	add("in", &cfg.Inputs)
	add("out", &cfg.Outputs)
	return renderTable(
		[]string{"Direction", "Bus", "Name", "Channels"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
	)
}

func writeParameters(out io.Writer, in *plugin.Instance, all bool) error {
	var rows [][]string
	for i := 0; i < in.ParameterCount(); i++ {
		p, err := in.Parameter(int32(i))
		if err != nil {
			return err
		}
		if p.Hidden && !all {
			continue
		}
		var flags []string
		if p.CanAutomate {
			flags = append(flags, "automate")
		}
		if p.ReadOnly {
			flags = append(flags, "read-only")
		}
		if p.Hidden {
			flags = append(flags, "hidden")
		}
		rows = append(rows, []string{
			strconv.Itoa(int(p.Index)),
			strconv.Itoa(int(p.ID)),
			p.Name,
			p.Formatted,
			strconv.FormatFloat(float64(p.Value), 'f', 3, 32),
			strings.Join(flags, ","),
		})
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No parameters")
		return nil
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Index", "ID", "Name", "Value", "Normalized", "Flags"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
