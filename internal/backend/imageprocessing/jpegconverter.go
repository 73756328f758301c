package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultJPEGQuality is the fixed encoding quality for captured stills.
	DefaultJPEGQuality = 95
	// DefaultFrameWidth and DefaultFrameHeight apply when a source reports no size.
	DefaultFrameWidth  = 1280
	DefaultFrameHeight = 720
)

// JPEGConverter normalizes arbitrary image uploads into JPEG artifacts.
type JPEGConverter struct {
	quality int
}

// NewJPEGConverter creates a converter; quality outside 1..100 falls back to DefaultJPEGQuality.
func NewJPEGConverter(quality int) *JPEGConverter {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &JPEGConverter{quality: quality}
}

// Quality returns the configured encoding quality.
func (c *JPEGConverter) Quality() int {
	return c.quality
}

// Convert decodes png, gif, webp or jpeg data and returns JPEG bytes.
// JPEG input is returned unchanged.
func (c *JPEGConverter) Convert(imageData []byte) ([]byte, error) {
	slog.Debug("JPEGConverter: decoding image", "input_size_bytes", len(imageData))

	img, currentFormat, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		slog.Error("JPEGConverter: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	currentFormat = strings.ToLower(currentFormat)
	if currentFormat == "jpeg" || currentFormat == "jpg" {
		slog.Debug("JPEGConverter: already jpeg, no conversion needed")
		return imageData, nil
	}

	slog.Debug("JPEGConverter: converting image format", "from", currentFormat, "to", "jpeg")
	out, err := EncodeJPEG(img, c.quality)
	if err != nil {
		return nil, err
	}

	slog.Debug("JPEGConverter: conversion complete", "output_size_bytes", len(out))
	return out, nil
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		slog.Error("EncodeJPEG: failed to encode image", "error", err)
		return nil, fmt.Errorf("failed to encode image to jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize draws src onto a width x height canvas, scaling when the sizes differ.
// Non-positive dimensions fall back to DefaultFrameWidth x DefaultFrameHeight.
func Rasterize(src image.Image, width, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		width, height = DefaultFrameWidth, DefaultFrameHeight
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		xdraw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, xdraw.Src)
		return canvas
	}
	xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return canvas
}
