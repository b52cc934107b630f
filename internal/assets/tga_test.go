package assets

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"testing/fstest"
)

// tgaFile builds a TGA header followed by body.
func tgaFile(imageType byte, w, h, bpp int, descriptor byte, body ...byte) []byte {
	hdr := make([]byte, tgaHeaderSize)
	hdr[2] = imageType
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = byte(bpp)
	hdr[17] = descriptor
	return append(hdr, body...)
}

func TestDecodeTGA_Uncompressed(t *testing.T) {
	// 2x2, 24bpp, bottom-up: first row in the file is the bottom row.
	data := tgaFile(tgaTypeUncompressed, 2, 2, 24, 0,
		0, 0, 255, 0, 255, 0, // bottom: red, green
		255, 0, 0, 255, 255, 255, // top: blue, white
	)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "tga" {
		t.Errorf("expected format tga, got %s", format)
	}

	rgba := img.(*image.RGBA)
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 1, color.RGBA{R: 255, A: 255}},
		{1, 1, color.RGBA{G: 255, A: 255}},
		{0, 0, color.RGBA{B: 255, A: 255}},
		{1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	for _, tt := range tests {
		if got := rgba.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDecodeTGA_RLE(t *testing.T) {
	// 3x1, 32bpp, top-down: a run of two red pixels then one raw half-transparent blue.
	data := tgaFile(tgaTypeRLE, 3, 1, 32, 0x20,
		0x81, 0, 0, 255, 255,
		0x00, 255, 0, 0, 128,
	)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	rgba := img.(*image.RGBA)
	red := color.RGBA{R: 255, A: 255}
	if rgba.RGBAAt(0, 0) != red || rgba.RGBAAt(1, 0) != red {
		t.Errorf("expected run of red, got %v %v", rgba.RGBAAt(0, 0), rgba.RGBAAt(1, 0))
	}
	if got := rgba.RGBAAt(2, 0); got != (color.RGBA{B: 255, A: 128}) {
		t.Errorf("expected half-transparent blue, got %v", got)
	}
}

func TestDecodeTGA_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{0, 0, 2}},
		{"bit depth", tgaFile(tgaTypeUncompressed, 1, 1, 16, 0, 0, 0)},
		{"truncated pixels", tgaFile(tgaTypeUncompressed, 2, 2, 24, 0, 1, 2, 3)},
		{"truncated run", tgaFile(tgaTypeRLE, 4, 1, 24, 0, 0x81, 1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeTGA(bytes.NewReader(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestManagerImageSizeTGA(t *testing.T) {
	m := NewManager()
	m.AddFS("base", fstest.MapFS{
		"cars/red.tga": {Data: tgaFile(tgaTypeRLE, 70, 121, 32, 0x20)},
	})

	size, err := m.ImageSize("cars/red.tga")
	if err != nil {
		t.Fatalf("ImageSize failed: %v", err)
	}
	if size != image.Pt(70, 121) {
		t.Errorf("expected 70x121, got %v", size)
	}
}
