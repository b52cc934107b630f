package tiled

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// layerData is the raw <data> element of a tile layer.
type layerData struct {
	Encoding    string `xml:"encoding,attr"`
	Compression string `xml:"compression,attr"`
	Content     string `xml:",chardata"`
	Tiles       []struct {
		GID GID `xml:"gid,attr"`
	} `xml:"tile"`
	Chunks []struct{} `xml:"chunk"`
}

// decode returns width*height GIDs in row-major order.
func (d *layerData) decode(width, height int) ([]GID, error) {
	if len(d.Chunks) > 0 {
		return nil, ErrInfiniteMap
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: layer size %dx%d", ErrLayerDataSize, width, height)
	}
	want := width * height

	var (
		gids []GID
		err  error
	)
	switch d.Encoding {
	case "csv":
		gids, err = decodeCSV(d.Content)
	case "base64":
		gids, err = decodeBase64(d.Content, d.Compression, want)
	case "":
		gids = make([]GID, len(d.Tiles))
		for i, t := range d.Tiles {
			gids[i] = t.GID
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, d.Encoding)
	}
	if err != nil {
		return nil, err
	}

	if len(gids) != want {
		return nil, fmt.Errorf("%w: got %d tiles, expected %dx%d=%d", ErrLayerDataSize, len(gids), width, height, want)
	}
	return gids, nil
}

func decodeCSV(content string) ([]GID, error) {
	fields := strings.Split(strings.TrimSpace(content), ",")
	gids := make([]GID, 0, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			// trailing comma at the end of a row
			continue
		}
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("csv cell %d: %w", i, err)
		}
		gids = append(gids, GID(v))
	}
	return gids, nil
}

// decodeBase64 decodes at most want tiles. Decompression stops one byte past
// the expected size so oversized data is rejected without being inflated.
func decodeBase64(content, compression string, want int) ([]GID, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("base64 layer data: %w", err)
	}

	var r io.Reader = bytes.NewReader(raw)
	switch compression {
	case "":
	case "zlib":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zlib layer data: %w", err)
		}
		defer zr.Close()
		r = zr
	case "gzip":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip layer data: %w", err)
		}
		defer gr.Close()
		r = gr
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrUnsupportedEncoding, compression)
	}

	limit := int64(want) * 4
	buf, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing layer data: %w", err)
	}
	if int64(len(buf)) > limit {
		return nil, fmt.Errorf("%w: more than %d tiles of data", ErrLayerDataSize, want)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of tiles", ErrLayerDataSize, len(buf))
	}

	gids := make([]GID, len(buf)/4)
	for i := range gids {
		gids[i] = GID(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return gids, nil
}
