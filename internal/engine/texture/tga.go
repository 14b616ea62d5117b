package texture

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image types.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// files with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	w := &tgaWriter{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		bpp:         bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}
	pixels := data[offset:]

	if imageType == TGATypeUncompressed {
		if len(pixels) < width*height*w.bpp {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for i := 0; i < width*height; i++ {
			w.put(w.read(pixels[i*w.bpp:]))
		}
		return w.img, nil
	}

	w.decodeRLE(pixels)
	return w.img, nil
}

// tgaWriter fills an image in file pixel order.
type tgaWriter struct {
	img         *image.RGBA
	width       int
	height      int
	bpp         int
	topToBottom bool
	n           int
}

func (w *tgaWriter) done() bool {
	return w.n >= w.width*w.height
}

// read converts one BGR(A) pixel.
func (w *tgaWriter) read(p []byte) color.RGBA {
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if w.bpp == 4 {
		c.A = p[3]
	}
	return c
}

func (w *tgaWriter) put(c color.RGBA) {
	x := w.n % w.width
	y := w.n / w.width
	if !w.topToBottom {
		y = w.height - 1 - y
	}
	w.img.SetRGBA(x, y, c)
	w.n++
}

// decodeRLE stops quietly at the end of data; missing pixels stay transparent.
func (w *tgaWriter) decodeRLE(data []byte) {
	i := 0
	for !w.done() && i < len(data) {
		packet := data[i]
		i++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if i+w.bpp > len(data) {
				return
			}
			c := w.read(data[i:])
			i += w.bpp
			for k := 0; k < count && !w.done(); k++ {
				w.put(c)
			}
			continue
		}

		for k := 0; k < count && !w.done(); k++ {
			if i+w.bpp > len(data) {
				return
			}
			w.put(w.read(data[i:]))
			i += w.bpp
		}
	}
}
