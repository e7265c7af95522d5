package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/game"
)

var (
	targetColor = color.RGBA{R: 46, G: 204, B: 113, A: 255}
	otherColor  = color.RGBA{R: 231, G: 76, B: 60, A: 255}
)

// Annotate draws a box and "label 87%" caption for each detection.
// Boxes for targetID are green, everything else red. Detections without a
// box are skipped.
func Annotate(frame *gocv.Mat, dets []game.Detection, targetID *int) {
	for _, d := range dets {
		if d.BBox.Empty() {
			continue
		}

		c := otherColor
		if targetID != nil && d.ClassID == *targetID {
			c = targetColor
		}

		gocv.Rectangle(frame, d.BBox, c, 2)

		caption := fmt.Sprintf("%s %.0f%%", d.DisplayLabel(), d.Confidence*100)
		origin := image.Pt(d.BBox.Min.X, d.BBox.Min.Y-8)
		if origin.Y < 12 {
			origin.Y = d.BBox.Min.Y + 18
		}
		gocv.PutText(frame, caption, origin, gocv.FontHersheySimplex, 0.6, c, 2)
	}
}

// EncodeJPEG encodes a frame for streaming.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory freed by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
