package math

// ColorFromUint unpacks a 0xRRGGBBAA color into normalized RGBA.
func ColorFromUint(c uint32) Vec4 {
	return Vec4{
		float32(c>>24&0xff) / 255,
		float32(c>>16&0xff) / 255,
		float32(c>>8&0xff) / 255,
		float32(c&0xff) / 255,
	}
}

// ColorToUint packs normalized RGBA into 0xRRGGBBAA, clamping each channel.
func ColorToUint(v Vec4) uint32 {
	var c uint32
	for i := 0; i < 4; i++ {
		f := v[i]
		if f < 0 {
			f = 0
		} else if f > 1 {
			f = 1
		}
		c = c<<8 | uint32(f*255+0.5)
	}
	return c
}

// RGB returns the first three channels.
func (v Vec4) RGB() Vec3 {
	return Vec3{v[0], v[1], v[2]}
}
