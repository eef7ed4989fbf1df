package codec

import "math"

// float32ToBits and bitsToFloat32 convert between a float32 and its
// IEEE-754 bit pattern for wire encoding's element type rules.
func float32ToBits(v float32) uint32 {
	return math.Float32bits(v)
}

func bitsToFloat32(bits uint32) float32 {
	return math.Float32frombits(bits)
}
