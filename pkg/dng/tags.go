package dng

// TIFF field types.
const (
	typeByte      uint16 = 1
	typeASCII     uint16 = 2
	typeShort     uint16 = 3
	typeLong      uint16 = 4
	typeRational  uint16 = 5
	typeSRational uint16 = 10
)

// Tags written by Encode.
const (
	tagNewSubfileType      uint16 = 254
	tagImageWidth          uint16 = 256
	tagImageLength         uint16 = 257
	tagBitsPerSample       uint16 = 258
	tagCompression         uint16 = 259
	tagPhotometric         uint16 = 262
	tagMake                uint16 = 271
	tagModel               uint16 = 272
	tagStripOffsets        uint16 = 273
	tagOrientation         uint16 = 274
	tagSamplesPerPixel     uint16 = 277
	tagRowsPerStrip        uint16 = 278
	tagStripByteCounts     uint16 = 279
	tagXResolution         uint16 = 282
	tagYResolution         uint16 = 283
	tagPlanarConfiguration uint16 = 284
	tagResolutionUnit      uint16 = 296
	tagSoftware            uint16 = 305
	tagCFARepeatPatternDim uint16 = 33421
	tagCFAPattern          uint16 = 33422
	tagDNGVersion          uint16 = 50706
	tagUniqueCameraModel   uint16 = 50708
	tagWhiteLevel          uint16 = 50717
	tagColorMatrix1        uint16 = 50721
	tagFrameRate           uint16 = 51044
)

const (
	PhotometricRGB uint16 = 2
	PhotometricCFA uint16 = 32803
)

// colorMatrix1 is the AXIOM sensor's XYZ to camera matrix, in 1/10000.
var colorMatrix1 = [9]int32{
	11038, 3184, 1009,
	3284, 11499, 1737,
	1283, 3550, 5967,
}
