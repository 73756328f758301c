package imageprocessing

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

const (
	fitName = "fit"

	// DefaultThumbnailSize is the longest edge of gallery strip thumbnails.
	DefaultThumbnailSize = 160
	maxThumbnailSize     = 1024
)

// FitCommand scales an image so its longer edge equals maxEdge, keeping
// the aspect ratio. Images already inside the box are left untouched.
type FitCommand struct {
	maxEdge int
}

func NewFitCommand(params map[string]any) (Command, error) {
	maxEdge := getIntParam(params, "maxEdge", 0)
	if maxEdge <= 0 {
		return nil, fmt.Errorf("maxEdge must be positive, got %d", maxEdge)
	}
	return &FitCommand{maxEdge: maxEdge}, nil
}

func (c *FitCommand) Name() string { return fitName }

func (c *FitCommand) MaxEdge() int { return c.maxEdge }

func (c *FitCommand) Execute(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("cannot scale empty image")
	}
	if b.Dx() <= c.maxEdge && b.Dy() <= c.maxEdge {
		return img, nil
	}

	width, height := c.maxEdge, c.maxEdge
	if b.Dx() >= b.Dy() {
		height = max(1, b.Dy()*c.maxEdge/b.Dx())
	} else {
		width = max(1, b.Dx()*c.maxEdge/b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

// NewThumbnailer builds the pipeline used for gallery thumbnails. Sizes
// are clamped to a sane range.
func NewThumbnailer(size, quality int) (*CommandInvoker, error) {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	size = min(size, maxThumbnailSize)

	fit, err := DefaultRegistry.Create(fitName, map[string]any{"maxEdge": size})
	if err != nil {
		return nil, err
	}
	return NewCommandInvoker(quality, fit), nil
}
