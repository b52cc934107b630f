package assets

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// TGA image types.
const (
	tgaTypeUncompressed = 2  // Uncompressed true-color
	tgaTypeRLE          = 10 // RLE compressed true-color
)

const tgaHeaderSize = 18

var errTGATruncated = errors.New("tga: data truncated")

func init() {
	// TGA has no signature; match an empty colour map plus a supported type.
	image.RegisterFormat("tga", "?\x00\x02", decodeTGA, decodeTGAConfig)
	image.RegisterFormat("tga", "?\x00\x0a", decodeTGA, decodeTGAConfig)
}

type tgaHeader struct {
	idLength    int
	imageType   byte
	width       int
	height      int
	bpp         int
	topToBottom bool
}

func readTGAHeader(r io.Reader) (tgaHeader, error) {
	var b [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return tgaHeader{}, fmt.Errorf("tga: reading header: %w", err)
	}

	h := tgaHeader{
		idLength:    int(b[0]),
		imageType:   b[2],
		width:       int(b[12]) | int(b[13])<<8,
		height:      int(b[14]) | int(b[15])<<8,
		bpp:         int(b[16]),
		topToBottom: b[17]&0x20 != 0,
	}
	if b[1] != 0 {
		return tgaHeader{}, errors.New("tga: color-mapped images not supported")
	}
	if h.imageType != tgaTypeUncompressed && h.imageType != tgaTypeRLE {
		return tgaHeader{}, fmt.Errorf("tga: unsupported image type %d", h.imageType)
	}
	if h.bpp != 24 && h.bpp != 32 {
		return tgaHeader{}, fmt.Errorf("tga: unsupported bit depth %d", h.bpp)
	}
	return h, nil
}

func decodeTGAConfig(r io.Reader) (image.Config, error) {
	h, err := readTGAHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

// decodeTGA decodes uncompressed and RLE true-color TGA images.
func decodeTGA(r io.Reader) (image.Image, error) {
	h, err := readTGAHeader(r)
	if err != nil {
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, r, int64(h.idLength)); err != nil {
		return nil, errTGATruncated
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	bytesPerPixel := h.bpp / 8
	total := h.width * h.height

	// put stores the n-th pixel of the file, flipping bottom-up images.
	put := func(n int, px []byte) {
		x, y := n%h.width, n/h.width
		if !h.topToBottom {
			y = h.height - 1 - y
		}
		a := uint8(255)
		if bytesPerPixel == 4 {
			a = px[3]
		}
		img.SetRGBA(x, y, color.RGBA{R: px[2], G: px[1], B: px[0], A: a})
	}

	if h.imageType == tgaTypeUncompressed {
		if len(data) < total*bytesPerPixel {
			return nil, errTGATruncated
		}
		for n := range total {
			put(n, data[n*bytesPerPixel:])
		}
		return img, nil
	}

	n, i := 0, 0
	for n < total {
		if i >= len(data) {
			return nil, errTGATruncated
		}
		packet := data[i]
		i++
		count := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			if i+bytesPerPixel > len(data) {
				return nil, errTGATruncated
			}
			px := data[i : i+bytesPerPixel]
			i += bytesPerPixel
			for ; count > 0 && n < total; count-- {
				put(n, px)
				n++
			}
			continue
		}

		for ; count > 0 && n < total; count-- {
			if i+bytesPerPixel > len(data) {
				return nil, errTGATruncated
			}
			put(n, data[i:i+bytesPerPixel])
			i += bytesPerPixel
			n++
		}
	}
	return img, nil
}
