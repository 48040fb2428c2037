package raster

import (
	"math"
)

// PixelID tags the element type of an Image.
type PixelID int

const (
	Unknown PixelID = iota
	UInt8
	Int8
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

// String returns the pixel type the way the registration engine spells it
// in parameter files ("float", "unsigned char", ...).
func (p PixelID) String() string {
	switch p {
	case UInt8:
		return "unsigned char"
	case Int8:
		return "char"
	case UInt16:
		return "unsigned short"
	case Int16:
		return "short"
	case UInt32:
		return "unsigned int"
	case Int32:
		return "int"
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return "unknown"
}

// Size is the number of bytes one pixel occupies on disk.
func (p PixelID) Size() int {
	switch p {
	case UInt8, Int8:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// IsFloat reports whether p is a floating point type.
func (p PixelID) IsFloat() bool {
	return p == Float32 || p == Float64
}

// limits returns the representable range of an integer pixel type.
func (p PixelID) limits() (lo, hi float64) {
	switch p {
	case UInt8:
		return 0, math.MaxUint8
	case Int8:
		return math.MinInt8, math.MaxInt8
	case UInt16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	}
	return -math.MaxFloat64, math.MaxFloat64
}

// convert maps v into the value set of p: float32 precision for Float32,
// rounded and clamped for integer types.
func (p PixelID) convert(v float64) float64 {
	switch {
	case p == Float64:
		return v
	case p == Float32:
		return float64(float32(v))
	case math.IsNaN(v):
		return 0
	}
	lo, hi := p.limits()
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
