package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCountsPrimitives(t *testing.T) {
	svg := svgOpen +
		`<circle cx="120" cy="120" r="112"/>` +
		`<path d="M 10 10 L 20 20 Q 30 30 40 40"/>` +
		`<path d="M 5 5 A 10 10 0 0 1 15 15"/>` +
		svgClose

	a := Analyze("traditional", "BLV", svg)
	assert.Equal(t, "BLV", a.Letters)
	assert.Equal(t, 3, a.LetterCount)
	assert.Equal(t, 4, a.StrokeCount) // circle + L + Q + A
	assert.InDelta(t, 0.75, a.CurveRatio, 0.001)
	assert.Equal(t, "traditional", a.Style)
	assert.Greater(t, a.Density, 0.0)
}

func TestAnalyzeEmptySvg(t *testing.T) {
	a := Analyze("manual", "", "")
	assert.Zero(t, a.StrokeCount)
	assert.Zero(t, a.CurveRatio)
	assert.Zero(t, a.Symmetry)
}

func TestLetterSymmetryBounds(t *testing.T) {
	// Opposite letters on the 26-wheel balance; repeats of one letter do not.
	balanced := letterSymmetry("AN") // A and N sit 180 degrees apart
	lopsided := letterSymmetry("AAA")
	assert.Greater(t, balanced, lopsided)
	for _, letters := range []string{"A", "AN", "QRSTVW", "ZY"} {
		s := letterSymmetry(letters)
		assert.GreaterOrEqual(t, s, 0.0, letters)
		assert.LessOrEqual(t, s, 1.0, letters)
	}
}

func TestAnalyzeMatchesGeneratedSigils(t *testing.T) {
	letters := "MCLNDFS"
	trad, err := GenerateTraditional(letters, SigilSeed(letters))
	require.NoError(t, err)

	a := Analyze("traditional", letters, trad)
	assert.Equal(t, len(letters), a.LetterCount)
	assert.Greater(t, a.StrokeCount, len(letters)/2)
	assert.True(t, a.CurveRatio > 0 && a.CurveRatio <= 1)
}

func TestBuildEnhancementPrompt(t *testing.T) {
	analysis := SigilAnalysis{StrokeCount: 14, CurveRatio: 0.7}

	p := BuildEnhancementPrompt("calm", "neon", analysis)
	assert.Contains(t, p, "flowing and curved")
	assert.Contains(t, p, "dense, intricate composition")
	assert.Contains(t, p, categoryStyleHints["calm"])
	assert.Contains(t, p, renderStyleHints["neon"])
	assert.Contains(t, p, "no text")
}

func TestBuildEnhancementPromptDefaults(t *testing.T) {
	analysis := SigilAnalysis{StrokeCount: 4, CurveRatio: 0.2}

	p := BuildEnhancementPrompt("unknowncategory", "", analysis)
	assert.Contains(t, p, "angular and decisive")
	assert.Contains(t, p, "sparse, airy composition")
	assert.Contains(t, p, defaultCategoryHint)
	assert.Contains(t, p, defaultRenderHint)
}

func TestBuildEnhancementPromptNeverEchoesIntention(t *testing.T) {
	// The prompt is built from measured structure only; feeding letters in
	// must not leak them into the model input.
	analysis := Analyze("traditional", "SECRETLTRS", "<path d=\"M 0 0 L 1 1\"/>")
	p := BuildEnhancementPrompt("focus", "minimal", analysis)
	assert.False(t, strings.Contains(p, "SECRETLTRS"))
}
