// Package config reads pipeline files and turns them into node chains.
//
// A pipeline file is YAML, or JSON with comments and trailing commas, and
// lists nodes in chain order with their parameter bags:
//
//	name: record
//	queue-depth: 2
//	nodes:
//	  - node: TestPattern
//	    parameters: {width: 64, height: 48, frames: 10}
//	  - node: BitDepthConverter
//	  - node: Debayer
//	  - node: CinemaDngWriter
//	    parameters: {path: ./out}
//
// Build validates every bag against the node registry before any worker
// starts.
package config
