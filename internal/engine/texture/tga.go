package texture

import (
	"errors"
	"fmt"
	"image"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

var errTGATruncated = errors.New("TGA data truncated")

// tgaPixels writes decoded BGR(A) pixels into an RGBA image in file order,
// honouring the vertical origin bit of the descriptor.
type tgaPixels struct {
	img         *image.RGBA
	width       int
	height      int
	bpp         int
	topToBottom bool
	n           int
}

func (p *tgaPixels) full() bool {
	return p.n >= p.width*p.height
}

func (p *tgaPixels) put(src []byte) {
	x, y := p.n%p.width, p.n/p.width
	if !p.topToBottom {
		y = p.height - 1 - y
	}
	i := p.img.PixOffset(x, y)
	p.img.Pix[i+0] = src[2]
	p.img.Pix[i+1] = src[1]
	p.img.Pix[i+2] = src[0]
	if p.bpp == 4 {
		p.img.Pix[i+3] = src[3]
	} else {
		p.img.Pix[i+3] = 255
	}
	p.n++
}

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// images with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < 18 {
		return nil, errTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bitsPerPixel := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bitsPerPixel != 24 && bitsPerPixel != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bitsPerPixel)
	}
	offset := 18 + idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}

	p := &tgaPixels{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		bpp:         bitsPerPixel / 8,
		topToBottom: descriptor&0x20 != 0,
	}
	src := data[offset:]

	if imageType == TGATypeUncompressed {
		if len(src) < width*height*p.bpp {
			return nil, errTGATruncated
		}
		for !p.full() {
			p.put(src[p.n*p.bpp:])
		}
		return p.img, nil
	}

	// RLE packets: the high bit repeats one pixel, otherwise raw pixels follow.
	for !p.full() && len(src) > 0 {
		header := src[0]
		src = src[1:]
		count := int(header&0x7F) + 1

		if header&0x80 != 0 {
			if len(src) < p.bpp {
				break
			}
			for i := 0; i < count && !p.full(); i++ {
				p.put(src)
			}
			src = src[p.bpp:]
			continue
		}
		for i := 0; i < count && !p.full(); i++ {
			if len(src) < p.bpp {
				break
			}
			p.put(src)
			src = src[p.bpp:]
		}
	}
	return p.img, nil
}
