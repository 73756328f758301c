package virtualcam

import (
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// testCardSVG draws colour bars and a marker that moves with the frame counter.
func testCardSVG(frame int) string {
	markerX := 40 + (frame%8)*10
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 160 120" width="160" height="120">
  <rect x="0" y="0" width="160" height="120" fill="#202020"/>
  <rect x="0" y="0" width="23" height="80" fill="#c0c0c0"/>
  <rect x="23" y="0" width="23" height="80" fill="#c0c000"/>
  <rect x="46" y="0" width="23" height="80" fill="#00c0c0"/>
  <rect x="69" y="0" width="22" height="80" fill="#00c000"/>
  <rect x="91" y="0" width="23" height="80" fill="#c000c0"/>
  <rect x="114" y="0" width="23" height="80" fill="#c00000"/>
  <rect x="137" y="0" width="23" height="80" fill="#0000c0"/>
  <circle cx="%d" cy="100" r="12" fill="#b03a2e" stroke="#f5cba7" stroke-width="3"/>
</svg>`, markerX)
}

// RenderTestCard rasterizes the test card at width x height.
func RenderTestCard(width, height, frame int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid test card size %dx%d", width, height)
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(testCardSVG(frame)), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse test card: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}
