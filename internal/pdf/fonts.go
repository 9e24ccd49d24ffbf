package pdf

import (
	_ "embed"
	"sync"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/sfnt"
)

// Both stages print with embedded UTF-8 faces. DejaVu covers Latin, Greek,
// Cyrillic and the rupee sign; Unifont has a glyph for the rest of the BMP
// (Devanagari, CJK) and is registered only for documents that need it.

//go:embed fonts/DejaVuSansCondensed.ttf
var dejaVu []byte

//go:embed fonts/DejaVuSansCondensed-Bold.ttf
var dejaVuBold []byte

//go:embed fonts/unifont-13.0.03.ttf
var unifont []byte

const (
	FamilySans = "DejaVu"
	FamilyWide = "Unifont"
)

var sansFace = sync.OnceValue(func() *sfnt.Font {
	f, err := sfnt.Parse(dejaVu)
	if err != nil {
		return nil
	}
	return f
})

// FontFamily returns FamilySans when it has a glyph for every rune of s and
// FamilyWide otherwise.
func FontFamily(s string) string {
	f := sansFace()
	if f == nil {
		return FamilySans
	}
	var buf sfnt.Buffer
	for _, r := range s {
		if r < unicode.MaxASCII || unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		if gi, err := f.GlyphIndex(&buf, r); err != nil || gi == 0 {
			return FamilyWide
		}
	}
	return FamilySans
}

// fonts switches a document between the embedded faces.
type fonts struct {
	pdf  *fpdf.Fpdf
	wide bool
}

func newFonts(p *fpdf.Fpdf) *fonts {
	p.AddUTF8FontFromBytes(FamilySans, "", dejaVu)
	p.AddUTF8FontFromBytes(FamilySans, "B", dejaVuBold)
	return &fonts{pdf: p}
}

// set selects a face that can print s. Unifont has no bold cut.
func (f *fonts) set(s, style string, size float64) {
	family := FontFamily(s)
	if family == FamilyWide {
		if !f.wide {
			f.pdf.AddUTF8FontFromBytes(FamilyWide, "", unifont)
			f.wide = true
		}
		style = ""
	}
	f.pdf.SetFont(family, style, size)
}
