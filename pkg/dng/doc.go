// Package dng writes single-frame CinemaDNG files.
//
// A file is a little-endian TIFF with one IFD and one strip. Bayer frames are
// written as CFA images (photometric 32803) carrying the DNG pattern tags;
// demosaiced frames are written as 8-bit RGB (photometric 2), which baseline
// TIFF readers can also decode.
package dng
