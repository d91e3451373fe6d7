package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ib-77/framerail/pkg/nodes"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the available nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range nodes.Names() {
			d, _ := nodes.Describe(name)
			fmt.Fprintf(w, "%s\t%s\n", name, d.Doc)
		}
		return w.Flush()
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <node>",
	Short: "Show a node's parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, ok := nodes.Describe(args[0])
		if !ok {
			return fmt.Errorf("%w: %s (see 'framerail nodes')", nodes.ErrUnknownNode, args[0])
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %s\n", d.Name, d.Doc)
		if d.Schema.Len() == 0 {
			fmt.Fprintln(out, "  no parameters")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, e := range d.Schema.Entries() {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", e.Name, e.Descriptor, e.Doc)
		}
		return w.Flush()
	},
}
