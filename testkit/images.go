// Package testkit holds fixtures and helpers shared by package tests.
package testkit

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"

	_ "golang.org/x/image/webp"
)

// Gradient returns an opaque RGBA image with a diagonal colour ramp, which
// compresses noticeably worse than a flat fill.
func Gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(width, 1)),
				G: uint8(y * 255 / max(height, 1)),
				B: uint8((x + y) % 256),
				A: 0xff,
			})
		}
	}
	return img
}

// Translucent returns an NRGBA image whose left half is fully transparent.
func Translucent(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			a := uint8(0xff)
			if x < width/2 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 0x20, G: 0x40, B: 0x80, A: a})
		}
	}
	return img
}

// PNG encodes img as PNG or fails the test.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes img as JPEG at quality 90 or fails the test.
func JPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// WEBP encodes img as lossless WebP or fails the test.
func WEBP(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("encode webp fixture: %v", err)
	}
	return buf.Bytes()
}

// Decode decodes PNG, JPEG or WebP bytes and returns the bounds.
func Decode(t testing.TB, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

// Corrupt is a byte buffer no image decoder accepts.
var Corrupt = []byte("this is definitely not an image")

// TruncatedPNG returns a PNG whose header is valid but whose data is cut short.
func TruncatedPNG(t testing.TB) []byte {
	t.Helper()
	data := PNG(t, Gradient(32, 32))
	return data[:len(data)/2]
}

// OversizedPNG returns a small valid 8x8 PNG whose IHDR claims width x height.
// The chunk CRC is recomputed so decoders accept the header.
func OversizedPNG(t testing.TB, width, height uint32) []byte {
	t.Helper()
	data := PNG(t, Gradient(8, 8))
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}
