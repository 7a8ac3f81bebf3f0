package pdfsource

import (
	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-medreport/internal/layout"
)

// minBoxSide separates rules and strokes from drawn frames.
const minBoxSide = 2.0

// vectorGraphics converts the rectangles painted on a page. Thin rectangles
// are strokes, the others frames.
func vectorGraphics(page *layout.Page, rects []pdf.Rect) []layout.GraphicObject {
	var out []layout.GraphicObject
	for _, r := range rects {
		w := r.Max.X - r.Min.X
		h := r.Max.Y - r.Min.Y
		if w < 0 {
			w = -w
		}
		if h < 0 {
			h = -h
		}
		typ := layout.GraphicVectorBox
		if w < minBoxSide || h < minBoxSide {
			typ = layout.GraphicVector
		}
		out = append(out, layout.GraphicObject{
			Type: typ,
			Box: layout.BoundingBox{
				Page:   page.Number,
				X:      min(r.Min.X, r.Max.X),
				Y:      page.Height - max(r.Min.Y, r.Max.Y),
				Width:  w,
				Height: h,
			},
			BlockPtr: -1,
		})
	}
	return out
}

// affine is a PDF transformation matrix [a b c d e f].
type affine [6]float64

var identity = affine{1, 0, 0, 1, 0, 0}

// then returns the transformation applying m first and n second.
func (m affine) then(n affine) affine {
	return affine{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// imagePlacer follows the graphics state of a content stream and records
// the current matrix of every XObject drawn with Do.
type imagePlacer struct {
	ctm    affine
	saved  []affine
	placed map[string][]affine
}

func newImagePlacer() *imagePlacer {
	return &imagePlacer{ctm: identity, placed: make(map[string][]affine)}
}

func (ip *imagePlacer) operator(op string, nums []float64, name string) {
	switch op {
	case "q":
		ip.saved = append(ip.saved, ip.ctm)
	case "Q":
		if n := len(ip.saved); n > 0 {
			ip.ctm = ip.saved[n-1]
			ip.saved = ip.saved[:n-1]
		}
	case "cm":
		if len(nums) == 6 {
			var m affine
			copy(m[:], nums)
			ip.ctm = m.then(ip.ctm)
		}
	case "Do":
		if name != "" {
			ip.placed[name] = append(ip.placed[name], ip.ctm)
		}
	}
}

// imageBox is the page area covered by an image drawn under m: the image of
// the unit square, in top-down coordinates.
func imageBox(page *layout.Page, m affine) layout.BoundingBox {
	minX, minY := m.apply(0, 0)
	maxX, maxY := minX, minY
	for _, c := range [][2]float64{{1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return layout.BoundingBox{
		Page:   page.Number,
		X:      minX,
		Y:      page.Height - maxY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// placements interprets the page content stream and returns where each
// XObject is drawn.
func placements(p pdf.Page) map[string][]affine {
	ip := newImagePlacer()
	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return ip.placed
	}
	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		var (
			nums []float64
			name string
		)
		for _, a := range args {
			switch a.Kind() {
			case pdf.Integer, pdf.Real:
				nums = append(nums, a.Float64())
			case pdf.Name:
				name = a.Name()
			}
		}
		ip.operator(op, nums, name)
	})
	return ip.placed
}

// imageGraphics lists the image XObjects drawn by the page content, one
// graphic per placement. Images only referenced from form XObjects are not
// placed and produce no graphic.
func imageGraphics(p pdf.Page, page *layout.Page) (out []layout.GraphicObject) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()

	xObjects := p.Resources().Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return nil
	}
	placed := placements(p)
	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() || obj.Key("Subtype").Name() != "Image" {
			continue
		}
		if obj.Key("Width").Int64() <= 0 || obj.Key("Height").Int64() <= 0 {
			continue
		}
		for _, m := range placed[key] {
			out = append(out, layout.GraphicObject{
				Type:     layout.GraphicBitmap,
				Box:      imageBox(page, m),
				BlockPtr: -1,
				Name:     key,
			})
		}
	}
	return out
}
