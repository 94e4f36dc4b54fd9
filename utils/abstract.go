package utils

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// GenerateAbstract renders the non-literal symbol. Grammar:
//
//	symbol := ring core spokes arcs dots
//	ring   := outer circle radius 112 plus a hairline inner circle whose
//	          radius the seed picks from three bands
//	core   := seeded 3..6-gon inscribed on the inner circle
//	spokes := one radial stroke per letter, from the inner circle towards
//	          the ring, at the letter's wheel angle
//	arcs   := circular arc between every second pair of consecutive letter
//	          angles, alternating sweep direction
//	dots   := one dot per letter just inside the ring
//
// The letters fix every angle; the seed only picks band, polygon order and
// small jitters, so equal inputs yield byte-identical SVG.
func GenerateAbstract(letters string, seed int64) (string, error) {
	if letters == "" {
		return "", ErrNoDistilledLetters
	}
	upper := strings.ToUpper(letters)
	for _, r := range upper {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("letter %q outside A-Z", r)
		}
	}
	rng := rand.New(rand.NewSource(seed))

	angles := make([]float64, 0, len(upper))
	for _, r := range upper {
		idx := int(r - 'A')
		angles = append(angles, -math.Pi/2+float64(idx)*(2*math.Pi/26))
	}

	inner := [3]float64{36, 44, 52}[rng.Intn(3)]

	var svg strings.Builder
	svg.WriteString(svgOpen)
	fmt.Fprintf(&svg, `<circle cx="%.1f" cy="%.1f" r="%.1f" stroke-width="1.5"/>`, sigilCX, sigilCY, sigilRing)
	fmt.Fprintf(&svg, `<circle cx="%.1f" cy="%.1f" r="%.1f" stroke-width="1"/>`, sigilCX, sigilCY, inner)

	order := 3 + rng.Intn(4)
	var core strings.Builder
	for i := 0; i < order; i++ {
		a := -math.Pi/2 + float64(i)*(2*math.Pi/float64(order))
		if i > 0 {
			core.WriteByte(' ')
		}
		fmt.Fprintf(&core, "%.1f,%.1f", sigilCX+inner*math.Cos(a), sigilCY+inner*math.Sin(a))
	}
	fmt.Fprintf(&svg, `<polygon points="%s" stroke-width="1.5"/>`, core.String())

	for _, a := range angles {
		outer := sigilRing - 10 - jitter(rng, 7) - 7
		fmt.Fprintf(&svg, `<path d="M %.1f %.1f L %.1f %.1f"/>`,
			sigilCX+inner*math.Cos(a), sigilCY+inner*math.Sin(a),
			sigilCX+outer*math.Cos(a), sigilCY+outer*math.Sin(a))
	}

	const arcRadius = 84.0
	for i := 0; i+1 < len(angles); i += 2 {
		a1, a2 := angles[i], angles[i+1]
		sweep := (i / 2) % 2
		fmt.Fprintf(&svg, `<path d="M %.1f %.1f A %.1f %.1f 0 0 %d %.1f %.1f"/>`,
			sigilCX+arcRadius*math.Cos(a1), sigilCY+arcRadius*math.Sin(a1),
			arcRadius, arcRadius, sweep,
			sigilCX+arcRadius*math.Cos(a2), sigilCY+arcRadius*math.Sin(a2))
	}

	for _, a := range angles {
		fmt.Fprintf(&svg, `<circle cx="%.1f" cy="%.1f" r="2.5"/>`,
			sigilCX+102*math.Cos(a), sigilCY+102*math.Sin(a))
	}

	svg.WriteString(svgClose)
	return svg.String(), nil
}
