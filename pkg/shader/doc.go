// Package shader assembles demosaic compute shaders from built-in WGSL parts.
//
// A descriptor chains parts with optional uniform overrides:
//
//	debayer() white_balance(red: 1.8, blue: 1.4) gamma(gamma: 2.4) clamp()
//
// Parts annotate their uniforms with `//@ uniform name = default` and their
// properties with `//! key = value` lines. The first part must be a demosaic
// stage; every following part maps one RGB triple to another.
//
// Builder.Build compiles the assembled source to SPIR-V with naga. The
// resulting Program can also be bound to a frame and run on the host, which
// is how the emulated gpu.HostDevice executes it.
package shader
