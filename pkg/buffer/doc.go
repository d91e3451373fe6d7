// Package buffer carries frame data between pipeline stages.
//
// A Buffer is either CPU-resident bytes or a GPU-resident reference-counted
// handle. A Payload pairs one Buffer with its frame.Interpretation, or is
// the empty payload used as an explicit "no frame" signal.
//
// Payload contents are immutable: Share hands out another reference, Clone
// produces a private CPU copy for mutation, and ToCPU/ToGPU materialize a new
// independent payload on the other side of the bus.
//
// Ownership: a payload handed to a stage belongs to that stage until it is
// forwarded downstream or released with Release.
package buffer
