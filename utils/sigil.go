package utils

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
)

// All generators draw into the same square viewBox so the client can swap
// styles without relayout.
const (
	sigilSize = 240.0
	sigilCX   = sigilSize / 2
	sigilCY   = sigilSize / 2
	sigilRing = 112.0
)

const (
	svgOpen = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 240 240">` +
		`<g fill="none" stroke="currentColor" stroke-width="3" stroke-linecap="round" stroke-linejoin="round">`
	svgClose = `</g></svg>`
)

var ErrNoDistilledLetters = errors.New("no distilled letters to draw")

// SigilSeed derives the RNG seed for a letter sequence (FNV-1a). Same
// letters, same seed, same glyph.
func SigilSeed(letters string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(letters))
	return int64(h.Sum64())
}

// letterAnchor maps a letter to its fixed canvas position: the letter picks
// a spoke on a 12-spoke wheel (index mod 12) and a radius band (index / 12,
// outer to inner), so the alphabet covers three rings.
func letterAnchor(r rune) (x, y float64) {
	idx := int(r - 'A')
	spoke := idx % 12
	band := idx / 12
	radius := 96.0 - 24.0*float64(band)
	angle := -math.Pi/2 + float64(spoke)*(math.Pi/6)
	return sigilCX + radius*math.Cos(angle), sigilCY + radius*math.Sin(angle)
}

// GenerateTraditional renders the letter-path sigil. Grammar:
//
//	sigil    := ring pathway origin terminus
//	ring     := circle at canvas center, radius 112
//	pathway  := M anchor(l0), then one segment per following letter
//	segment  := L anchor(li)                 for odd i
//	           | Q bend(li-1,li) anchor(li)  for even i
//	origin   := small circle on anchor(l0)
//	terminus := crossbar perpendicular to the final segment
//
// anchor() is the letter's wheel position, bend() the segment midpoint
// pushed along its normal, alternating sides. The seeded RNG only jitters
// coordinates by a few pixels, so equal inputs yield byte-identical SVG.
func GenerateTraditional(letters string, seed int64) (string, error) {
	pts, err := anchorPoints(letters, seed, 3)
	if err != nil {
		return "", err
	}
	rng := rand.New(rand.NewSource(seed ^ 0x5f3c))

	// A single letter still needs a visible stroke to hang the marks on.
	if len(pts) == 1 {
		pts = append(pts, point{pts[0].x, pts[0].y - 22})
	}

	var d strings.Builder
	fmt.Fprintf(&d, "M %.1f %.1f", pts[0].x, pts[0].y)
	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		if i%2 == 1 {
			fmt.Fprintf(&d, " L %.1f %.1f", cur.x, cur.y)
			continue
		}
		mx, my := (prev.x+cur.x)/2, (prev.y+cur.y)/2
		nx, ny := segmentNormal(prev, cur)
		side := 1.0
		if i%4 == 0 {
			side = -1
		}
		bend := 10 + jitter(rng, 4)
		fmt.Fprintf(&d, " Q %.1f %.1f %.1f %.1f", mx+side*bend*nx, my+side*bend*ny, cur.x, cur.y)
	}

	var svg strings.Builder
	svg.WriteString(svgOpen)
	fmt.Fprintf(&svg, `<circle cx="%.1f" cy="%.1f" r="%.1f" stroke-width="1.5"/>`, sigilCX, sigilCY, sigilRing)
	fmt.Fprintf(&svg, `<path d="%s"/>`, d.String())
	fmt.Fprintf(&svg, `<circle cx="%.1f" cy="%.1f" r="4"/>`, pts[0].x, pts[0].y)

	last, prev := pts[len(pts)-1], pts[len(pts)-2]
	nx, ny := segmentNormal(prev, last)
	fmt.Fprintf(&svg, `<path d="M %.1f %.1f L %.1f %.1f"/>`,
		last.x-7*nx, last.y-7*ny, last.x+7*nx, last.y+7*ny)

	svg.WriteString(svgClose)
	return svg.String(), nil
}

type point struct{ x, y float64 }

func anchorPoints(letters string, seed int64, jitterMax float64) ([]point, error) {
	if letters == "" {
		return nil, ErrNoDistilledLetters
	}
	rng := rand.New(rand.NewSource(seed))
	pts := make([]point, 0, len(letters))
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return nil, fmt.Errorf("letter %q outside A-Z", r)
		}
		x, y := letterAnchor(r)
		pts = append(pts, point{x + jitter(rng, jitterMax), y + jitter(rng, jitterMax)})
	}
	return pts, nil
}

func jitter(rng *rand.Rand, max float64) float64 {
	return (rng.Float64()*2 - 1) * max
}

// segmentNormal returns the unit normal of a->b.
func segmentNormal(a, b point) (nx, ny float64) {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, -1
	}
	return -dy / l, dx / l
}
