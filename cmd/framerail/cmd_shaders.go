package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ib-77/framerail/pkg/shader"
)

var shadersFlags struct {
	source string
}

var shadersCmd = &cobra.Command{
	Use:   "shaders",
	Short: "List shader parts, or print the WGSL for a descriptor",
	Args:  cobra.NoArgs,
	RunE:  runShaders,
}

func init() {
	shadersCmd.Flags().StringVar(&shadersFlags.source, "source", "", "print the generated WGSL for this descriptor, e.g. \"debayer() gamma()\"")
}

func runShaders(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if shadersFlags.source != "" {
		b, err := shader.Parse(shadersFlags.source)
		if err != nil {
			return err
		}
		fmt.Fprint(out, b.Source())
		return nil
	}
	parts := shader.Available()
	for _, name := range shader.Names() {
		fmt.Fprintln(out, parts[name])
	}
	return nil
}
