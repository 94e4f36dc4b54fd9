package utils

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxStrokes      = 64
	maxStrokePoints = 2048
	strokePadding   = 12.0
)

var (
	ErrNoStrokes      = errors.New("manual sigil needs at least one stroke")
	ErrShortStroke    = errors.New("each stroke needs at least two points")
	ErrTooManyStrokes = errors.New("too many strokes")
	ErrTooManyPoints  = errors.New("too many points in stroke")
)

// StrokePoint is a single sampled point of a finger-drawn stroke.
type StrokePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StrokesToSVG converts finger-drawn strokes into the standard sigil SVG.
// Strokes are smoothed with Catmull-Rom interpolation rendered as cubic
// Bezier segments, then fitted into the 240x240 viewport with padding so
// the drawing fills the frame regardless of the input coordinate space.
func StrokesToSVG(strokes [][]StrokePoint) (string, error) {
	if len(strokes) == 0 {
		return "", ErrNoStrokes
	}
	if len(strokes) > maxStrokes {
		return "", ErrTooManyStrokes
	}
	for _, s := range strokes {
		if len(s) < 2 {
			return "", ErrShortStroke
		}
		if len(s) > maxStrokePoints {
			return "", ErrTooManyPoints
		}
	}

	minX, minY := strokes[0][0].X, strokes[0][0].Y
	maxX, maxY := minX, minY
	for _, s := range strokes {
		for _, p := range s {
			minX = min(minX, p.X)
			minY = min(minY, p.Y)
			maxX = max(maxX, p.X)
			maxY = max(maxY, p.Y)
		}
	}

	spanX := maxX - minX
	spanY := maxY - minY
	span := max(max(spanX, spanY), 1e-6)
	scale := (sigilSize - 2*strokePadding) / span
	// Center the shorter axis inside the viewport.
	offX := strokePadding + (sigilSize-2*strokePadding-spanX*scale)/2
	offY := strokePadding + (sigilSize-2*strokePadding-spanY*scale)/2

	fit := func(p StrokePoint) point {
		return point{x: offX + (p.X-minX)*scale, y: offY + (p.Y-minY)*scale}
	}

	var svg strings.Builder
	svg.WriteString(svgOpen)
	for _, s := range strokes {
		pts := make([]point, len(s))
		for i, p := range s {
			pts[i] = fit(p)
		}
		svg.WriteString(smoothPath(pts))
	}
	svg.WriteString(svgClose)
	return svg.String(), nil
}

// smoothPath renders a polyline as Catmull-Rom curves expressed in cubic
// Bezier form. Endpoints are duplicated so the curve passes through every
// sampled point. Two-point strokes stay straight lines.
func smoothPath(pts []point) string {
	var d strings.Builder
	fmt.Fprintf(&d, "M %.1f %.1f", pts[0].x, pts[0].y)
	if len(pts) == 2 {
		fmt.Fprintf(&d, " L %.1f %.1f", pts[1].x, pts[1].y)
		return `<path d="` + d.String() + `"/>`
	}
	for i := 0; i < len(pts)-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, len(pts)-1)]
		c1 := point{x: p1.x + (p2.x-p0.x)/6, y: p1.y + (p2.y-p0.y)/6}
		c2 := point{x: p2.x - (p3.x-p1.x)/6, y: p2.y - (p3.y-p1.y)/6}
		fmt.Fprintf(&d, " C %.1f %.1f %.1f %.1f %.1f %.1f", c1.x, c1.y, c2.x, c2.y, p2.x, p2.y)
	}
	return `<path d="` + d.String() + `"/>`
}
