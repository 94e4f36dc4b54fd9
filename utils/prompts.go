package utils

import (
	"fmt"
	"strings"
)

// categoryStyleHints steer the image model toward imagery that matches the
// intention category without ever echoing the intention text itself.
var categoryStyleHints = map[string]string{
	"confidence":     "bold upright strokes, solar motifs, radiant balance",
	"calm":           "soft curvature, water-like flow, generous negative space",
	"focus":          "converging lines, a single strong center, minimal ornament",
	"health":         "organic curves, leaf and vine motifs, gentle symmetry",
	"abundance":      "spiraling growth, layered rings, upward movement",
	"protection":     "enclosing circles, knotwork, interlocked barriers",
	"love":           "mirrored arcs, twin forms, warm rounded geometry",
	"transformation": "broken symmetry resolving into order, phoenix curves",
}

var renderStyleHints = map[string]string{
	"gold-ink":   "hand drawn in liquid gold ink on deep black parchment, subtle shimmer",
	"neon":       "glowing neon tube lines on a dark gradient, soft bloom",
	"engraved":   "engraved into weathered stone, chiseled depth, directional light",
	"watercolor": "flowing watercolor strokes, soft ink bleed, textured paper",
	"minimal":    "single-weight black line art on white, precise and austere",
}

const (
	defaultCategoryHint = "balanced sacred geometry, timeless and personal"
	defaultRenderHint   = "hand drawn ink on textured paper, high contrast"
)

// BuildEnhancementPrompt composes the image model prompt from the sigil's
// measured structure. The intention text must never appear here: the prompt
// describes geometry and mood only.
func BuildEnhancementPrompt(category, renderStyle string, analysis SigilAnalysis) string {
	categoryHint := categoryStyleHints[strings.ToLower(category)]
	if categoryHint == "" {
		categoryHint = defaultCategoryHint
	}
	renderHint := renderStyleHints[strings.ToLower(renderStyle)]
	if renderHint == "" {
		renderHint = defaultRenderHint
	}

	character := "angular and decisive"
	if analysis.CurveRatio >= 0.5 {
		character = "flowing and curved"
	}
	weight := "sparse, airy composition"
	if analysis.StrokeCount >= 12 {
		weight = "dense, intricate composition"
	}

	return fmt.Sprintf(
		"An ornate mystical sigil, %s, %s, %s. Style: %s. Centered emblem, no text, no letters, no words, symmetrical framing, high detail.",
		character, weight, categoryHint, renderHint,
	)
}
