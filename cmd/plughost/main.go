// Command plughost probes, inspects and drives audio plugins from the
// command line. In-process plugins are available as native:<name>.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
