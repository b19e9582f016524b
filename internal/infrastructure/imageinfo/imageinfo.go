// Package imageinfo inline-classifies an image fetched from an HTTP(S) URL
// the way the protocol adapters (C8) need to before forwarding it upstream:
// format detection by magic bytes, a non-animated-GIF check, and cheap
// dimension extraction (header-only decode, never the full pixel data).
// Grounded on the original implementation's process_http_image, which uses
// the Rust `image` crate's guess_format plus a dedicated animated-GIF frame
// count check before accepting a fetched image.
package imageinfo

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"
)

// Format is one of the four image kinds the gateway forwards upstream.
type Format string

const (
	FormatPNG  Format = "image/png"
	FormatJPEG Format = "image/jpeg"
	FormatGIF  Format = "image/gif"
	FormatWebP Format = "image/webp"
)

// ErrUnsupportedFormat is returned by Detect when the data's magic bytes
// don't match any of the four supported formats.
var ErrUnsupportedFormat = errors.New("imageinfo: unsupported image format")

// ErrAnimatedGIF is returned by Classify for a multi-frame GIF.
var ErrAnimatedGIF = errors.New("imageinfo: animated GIF not supported")

var (
	pngMagic  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	gif87Magic = []byte("GIF87a")
	gif89Magic = []byte("GIF89a")
)

// Detect identifies data's format from its leading magic bytes, without
// decoding anything.
func Detect(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG, nil
	case bytes.HasPrefix(data, jpegMagic):
		return FormatJPEG, nil
	case bytes.HasPrefix(data, gif87Magic), bytes.HasPrefix(data, gif89Magic):
		return FormatGIF, nil
	case isRIFFWebP(data):
		return FormatWebP, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func isRIFFWebP(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
}

// Dimensions decodes just enough of data to read its width/height, per
// format's own header-only config decoder.
func Dimensions(format Format, data []byte) (width, height int, err error) {
	var cfg image.Config
	switch format {
	case FormatPNG:
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	case FormatJPEG:
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	case FormatGIF:
		cfg, err = gif.DecodeConfig(bytes.NewReader(data))
	case FormatWebP:
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	default:
		return 0, 0, ErrUnsupportedFormat
	}
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// IsAnimatedGIF reports whether a GIF-formatted payload has more than one
// frame. Only meaningful when Detect already returned FormatGIF.
func IsAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}

// Classify runs the full acceptance check the adapters need before
// forwarding a fetched image upstream: format detection, the animated-GIF
// rejection, and dimension extraction, in one call.
func Classify(data []byte) (format Format, width, height int, err error) {
	format, err = Detect(data)
	if err != nil {
		return "", 0, 0, err
	}
	if format == FormatGIF && IsAnimatedGIF(data) {
		return "", 0, 0, ErrAnimatedGIF
	}
	width, height, err = Dimensions(format, data)
	if err != nil {
		return "", 0, 0, err
	}
	return format, width, height, nil
}
