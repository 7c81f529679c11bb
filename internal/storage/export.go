package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type ExportData struct {
	Metadata  RunMetadata `json:"metadata"`
	Telemetry []Sample    `json:"telemetry,omitempty"`
}

// Export writes a run as indented JSON. Telemetry is included only when
// full is set.
func (s *Store) Export(w io.Writer, runID string, full bool) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := ExportData{Metadata: *meta}
	if full {
		if data.Telemetry, err = s.LoadTelemetry(runID); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PathSVG renders the plant's ground track of a run.
func PathSVG(samples []Sample, width, height int, strokeColor string) string {
	if len(samples) < 2 {
		return ""
	}

	minX, maxX := samples[0].X, samples[0].X
	minY, maxY := samples[0].Y, samples[0].Y
	for _, p := range samples {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	// keep aspect ratio so a straight run looks straight
	span := max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	pad := span * 0.1
	minX -= pad
	minY -= pad
	span += 2 * pad
	scale := float64(min(width, height)) / span

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i, p := range samples {
		x := (p.X - minX) * scale
		y := float64(height) - (p.Y-minY)*scale
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
