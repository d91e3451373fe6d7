// Package nodes holds the built-in pipeline stages and the registry that
// creates them by name from parameter bags.
//
// Sources (TestPattern, RawDirectoryReader, RawBlobReader) ignore their input
// and return rail.ErrEndOfStream when exhausted. Transforms (BitDepthConverter,
// Debayer) are pure. Sinks (CinemaDngWriter, RawDirectoryWriter,
// RawBlobWriter, Preview) acquire commit rights before touching the outside
// world, so output files appear strictly in frame order.
package nodes
