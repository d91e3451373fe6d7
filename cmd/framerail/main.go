// framerail runs camera frame pipelines described by pipeline files.
//
// Usage:
//
//	framerail nodes
//	framerail describe <node>
//	framerail shaders
//	framerail run <pipeline.yaml> [--param node.key=value ...]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
