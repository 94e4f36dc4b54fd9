package utils

import (
	"math"
	"strings"
)

// SigilAnalysis summarizes the structure of a rendered sigil. The JSON
// field names follow the AI enhancement wire contract.
type SigilAnalysis struct {
	Letters     string  `json:"letters"`
	LetterCount int     `json:"letterCount"`
	StrokeCount int     `json:"strokeCount"`
	CurveRatio  float64 `json:"curveRatio"`
	Density     float64 `json:"density"`
	Symmetry    float64 `json:"symmetry"`
	Style       string  `json:"style"`
}

// Analyze derives descriptive metrics from a sigil's SVG body. It counts
// drawing primitives rather than parsing the full SVG grammar, which is
// enough for prompt building and the stats endpoints.
func Analyze(style, letters, svg string) SigilAnalysis {
	lines := strings.Count(svg, " L ")
	quads := strings.Count(svg, " Q ")
	cubics := strings.Count(svg, " C ")
	arcs := strings.Count(svg, " A ")
	circles := strings.Count(svg, "<circle")
	polygons := strings.Count(svg, "<polygon")

	strokes := lines + quads + cubics + arcs + circles + polygons
	curved := quads + cubics + arcs + circles

	curveRatio := 0.0
	if strokes > 0 {
		curveRatio = round2(float64(curved) / float64(strokes))
	}
	density := round2(float64(strokes) / float64(sigilSize*sigilSize) * 1e4)

	return SigilAnalysis{
		Letters:     letters,
		LetterCount: len(letters),
		StrokeCount: strokes,
		CurveRatio:  curveRatio,
		Density:     density,
		Symmetry:    round2(letterSymmetry(letters)),
		Style:       style,
	}
}

// letterSymmetry measures how evenly the letters spread around the wheel:
// 1 means perfectly balanced, 0 means all mass on one side. It is the
// complement of the normalized resultant vector of the letter angles.
func letterSymmetry(letters string) float64 {
	if len(letters) == 0 {
		return 0
	}
	var sx, sy float64
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			continue
		}
		a := -math.Pi/2 + float64(r-'A')*(2*math.Pi/26)
		sx += math.Cos(a)
		sy += math.Sin(a)
	}
	resultant := math.Hypot(sx, sy) / float64(len(letters))
	return 1 - math.Min(resultant, 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
