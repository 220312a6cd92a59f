package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/epitopelab/bindscope/internal/results"
)

// Canvas geometry. The legend is drawn below the plot area.
const (
	svgWidth    = 960
	svgHeight   = 420
	marginLeft  = 70
	marginRight = 30
	marginTop   = 20
	plotBottom  = 360
	legendY     = 395
)

// RenderSVG writes the chart as a standalone SVG document. One polyline is
// drawn per series in the series color; runs of missing positions break the
// line instead of being interpolated across.
func (c *Chart) RenderSVG(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	vp := c.viewport
	if vp.Max <= vp.Min {
		vp.Max = vp.Min + 1
	}

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="11">`+"\n",
		svgWidth, svgHeight, svgWidth, svgHeight)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	c.writeYAxis(&b)
	c.writeXAxis(&b, vp)
	c.writeReferenceLine(&b)

	for i, s := range c.series {
		if c.hidden[s.Allele] {
			continue
		}
		c.writeSeries(&b, s, c.display[i], vp)
	}
	c.writeLegend(&b)

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Chart) writeSeries(b *strings.Builder, s results.Series, display []results.DisplayRow, vp Viewport) {
	var points []string
	flush := func() {
		if len(points) >= 2 {
			fmt.Fprintf(b, `<polyline fill="none" stroke="%s" stroke-width="%g" points="%s"/>`+"\n",
				s.Color, c.settings.LineThickness, strings.Join(points, " "))
		} else if len(points) == 1 {
			// A lone point would otherwise vanish.
			xy := strings.Split(points[0], ",")
			fmt.Fprintf(b, `<circle cx="%s" cy="%s" r="%g" fill="%s"/>`+"\n",
				xy[0], xy[1], c.settings.LineThickness, s.Color)
		}
		points = points[:0]
	}

	for _, d := range display {
		if d.Affinity == nil {
			flush()
			continue
		}
		if d.Start < vp.Min || d.Start > vp.Max {
			flush()
			continue
		}
		x := c.xFor(d.Start, vp)
		y := c.yFor(*d.Affinity)
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	flush()
}

func (c *Chart) xFor(start int, vp Viewport) float64 {
	span := float64(vp.Max - vp.Min)
	frac := float64(start-vp.Min) / span
	return marginLeft + frac*(svgWidth-marginLeft-marginRight)
}

// yFor maps affinity to a canvas Y. The axis is inverted: strong binders
// (low kd) plot near the top. Values weaker than the configured lower
// bound clamp to the axis floor.
func (c *Chart) yFor(affinity float64) float64 {
	lo, hi := 1.0, c.settings.LowerBound
	v := math.Min(math.Max(affinity, lo), hi)

	var frac float64
	if c.settings.Scale == ScaleLogarithmic {
		frac = math.Log10(v) / math.Log10(hi)
	} else {
		frac = v / hi
	}
	return marginTop + frac*(plotBottom-marginTop)
}

func (c *Chart) writeYAxis(b *strings.Builder) {
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999"/>`+"\n",
		marginLeft, marginTop, marginLeft, plotBottom)

	var ticks []float64
	if c.settings.Scale == ScaleLogarithmic {
		for v := 1.0; v <= c.settings.LowerBound; v *= 10 {
			ticks = append(ticks, v)
		}
	} else {
		step := c.settings.LowerBound / 5
		for v := 0.0; v <= c.settings.LowerBound; v += step {
			ticks = append(ticks, math.Max(v, 1))
		}
	}
	for _, v := range ticks {
		y := c.yFor(v)
		fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#999"/>`+"\n",
			marginLeft-4, y, marginLeft, y)
		fmt.Fprintf(b, `<text x="%d" y="%.1f" text-anchor="end" dominant-baseline="middle">%g</text>`+"\n",
			marginLeft-8, y, v)
	}
	fmt.Fprintf(b, `<text x="14" y="%d" transform="rotate(-90 14 %d)" text-anchor="middle">IC50 (nM)</text>`+"\n",
		(marginTop+plotBottom)/2, (marginTop+plotBottom)/2)
}

func (c *Chart) writeXAxis(b *strings.Builder, vp Viewport) {
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999"/>`+"\n",
		marginLeft, plotBottom, svgWidth-marginRight, plotBottom)

	span := vp.Max - vp.Min
	step := 1
	for span/step > 20 {
		step *= 5
	}
	for pos := vp.Min; pos <= vp.Max; pos += step {
		x := c.xFor(pos, vp)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#999"/>`+"\n",
			x, plotBottom, x, plotBottom+4)
		fmt.Fprintf(b, `<text x="%.1f" y="%d" text-anchor="middle">%d</text>`+"\n",
			x, plotBottom+16, pos)
	}
	fmt.Fprintf(b, `<text x="%d" y="%d" text-anchor="middle">Sequence position</text>`+"\n",
		(marginLeft+svgWidth-marginRight)/2, plotBottom+32)
}

func (c *Chart) writeReferenceLine(b *strings.Builder) {
	y := c.yFor(ReferenceAffinity)
	fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#c00" stroke-dasharray="6,4"/>`+"\n",
		marginLeft, y, svgWidth-marginRight, y)
	fmt.Fprintf(b, `<text x="%d" y="%.1f" fill="#c00" dominant-baseline="text-after-edge">%g nM</text>`+"\n",
		marginLeft+4, y, ReferenceAffinity)
}

func (c *Chart) writeLegend(b *strings.Builder) {
	x := marginLeft
	for _, s := range c.series {
		color := s.Color
		if c.hidden[s.Allele] {
			color = "#ccc"
		}
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="12" height="12" fill="%s"/>`+"\n",
			x, legendY-10, color)
		fmt.Fprintf(b, `<text x="%d" y="%d">%s</text>`+"\n", x+16, legendY, s.Allele)
		x += 16 + 8*len(s.Allele) + 20
	}
}
