package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/justyntemme/plughost/pkg/discovery"
	"github.com/justyntemme/plughost/pkg/plugin"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <path>...",
		Short: "List the plugins a file or bundle contains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var descs []plugin.Descriptor
			for _, path := range args {
				found, err := discovery.Probe(path)
				if err != nil {
					return fmt.Errorf("probe %s: %w", path, err)
				}
				descs = append(descs, found...)
			}
			fmt.Fprintln(cmd.OutOrStdout(), descriptorTable(descs))
			return nil
		},
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var withNative bool

	cmd := &cobra.Command{
		Use:   "scan [dir]...",
		Short: "Search directories for plugins",
		Long:  "Search the given directories, or discovery.search_paths from the configuration, for plugins.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				dirs = cfg.Discovery.SearchPaths
			}

			descs := discovery.Scan(dirs...)
			if withNative {
				native, err := discovery.Probe(plugin.NativePrefix)
				if err != nil {
					return err
				}
				descs = append(descs, native...)
			}

			out := cmd.OutOrStdout()
			if len(descs) == 0 {
				fmt.Fprintln(out, "No plugins found")
				return nil
			}
			fmt.Fprintln(out, descriptorTable(descs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withNative, "native", true, "Include in-process plugins")
	return cmd
}

func descriptorTable(descs []plugin.Descriptor) string {
	rows := make([][]string, 0, len(descs))
	for _, d := range descs {
		rows = append(rows, []string{
			d.Name,
			d.ID,
			d.Vendor,
			d.Version,
			d.Format.String(),
			strconv.Itoa(d.InitialLatency),
			d.Path,
		})
	}
	return renderTable(
		[]string{"Name", "ID", "Vendor", "Version", "Format", "Latency", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
