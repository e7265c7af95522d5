package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/ayusman/mudra/internal/game"
)

// Frames go to the service as a 4-byte big-endian length followed by JPEG
// bytes. Each frame gets exactly one JSON line back.

type wireDetection struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       []int   `json:"bbox"`
	Name       string  `json:"name"`
}

type wireResponse struct {
	Detections []wireDetection `json:"detections"`
	Error      string          `json:"error,omitempty"`
}

func writeFrame(w io.Writer, jpeg []byte) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(jpeg)))

	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

func readResponse(r *bufio.Reader) ([]game.Detection, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp wireResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}

	out := make([]game.Detection, 0, len(resp.Detections))
	for _, d := range resp.Detections {
		out = append(out, d.toDetection())
	}
	return out, nil
}

func (d wireDetection) toDetection() game.Detection {
	det := game.Detection{
		ClassID:    d.Class,
		Confidence: clamp01(d.Confidence),
		Label:      d.Name,
	}
	if len(d.BBox) == 4 {
		det.BBox = image.Rect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
	}
	return det
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
