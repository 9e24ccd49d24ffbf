// Package pdf produces proposal documents in two stages. Layout prints the
// rendered proposal onto A4 pages; Compose re-opens those pages and stamps
// branding, page numbers and the payment page on top.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"github.com/delonixservices/crm/internal/domain"
	"github.com/delonixservices/crm/internal/render"
)

// RawPDF is the unbranded output of Layout and the input of Compose.
type RawPDF struct {
	Bytes []byte
	Pages int
}

const (
	marginMM   = 20.0
	contentMM  = 210.0 - 2*marginMM
	lineMM     = 6.0
	ptPerMM    = 72 / 25.4
	heroMaxMM   = 80.0
	photoMaxMM  = 55.0
	flightImgMM = 0.3 * contentMM
	hotelImgMM  = 60.0
	dayImgMM    = 50.0
)

var (
	accent = [3]int{25, 118, 210}
	danger = [3]int{211, 47, 47}
	muted  = [3]int{90, 90, 90}
)

type layout struct {
	ctx    context.Context
	pdf    *fpdf.Fpdf
	font   *fonts
	loader domain.ImageLoader
	images int
	doc    render.Document
}

// Layout prints doc section by section. Images that cannot be loaded are
// left out; any other failure aborts.
func Layout(ctx context.Context, doc render.Document, loader domain.ImageLoader) (RawPDF, error) {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(marginMM, marginMM, marginMM)
	p.SetAutoPageBreak(true, marginMM)
	p.SetTitle(doc.Title, true)
	p.SetCreator("proposal desk", true)
	l := &layout{ctx: ctx, pdf: p, font: newFonts(p), loader: loader, doc: doc}

	p.AddPage()
	l.gallery()
	for _, id := range doc.Sections() {
		if err := ctx.Err(); err != nil {
			return RawPDF{}, err
		}
		l.section(id)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return RawPDF{}, fmt.Errorf("layout: %w", err)
	}
	return RawPDF{Bytes: buf.Bytes(), Pages: p.PageCount()}, nil
}

func (l *layout) section(id string) {
	d := l.doc
	switch id {
	case render.SectionClient:
		for _, f := range d.Client {
			l.field(f.Label, f.Value)
		}
		l.rule()
	case render.SectionDates:
		l.field("Start Date", d.StartDate)
		l.field("End Date", d.EndDate)
		l.field("Total Days", fmt.Sprint(d.TotalDays))
		l.pdf.Ln(2)
	case render.SectionFlights:
		l.heading("Flights")
		if d.FlightImage != "" {
			l.image(d.FlightImage, flightImgMM, photoMaxMM, false)
		}
		l.bullets(d.Flights, [3]int{0, 0, 0})
	case render.SectionHotels:
		l.heading("Hotel Information")
		for _, h := range d.Hotels {
			l.hotel(h)
		}
	case render.SectionActivities:
		l.heading("Daily Activities")
		for _, day := range d.Days {
			l.day(day)
		}
	case render.SectionInclusions:
		l.heading("Inclusions")
		l.bullets(d.Inclusions, accent)
	case render.SectionExclusions:
		l.heading("Exclusions")
		l.bullets(d.Exclusions, danger)
	case render.SectionVisa:
		l.heading("Visa Information")
		l.field("Type", d.VisaType)
		l.field("Notes", d.VisaNotes)
	case render.SectionTerms:
		l.heading("Terms and Conditions")
		l.paragraph(d.Terms, 10)
	case render.SectionInsurance:
		l.heading("Travel Insurance")
		for _, s := range d.Insurance {
			l.paragraph(s, 10)
		}
	}
}

func (l *layout) heading(s string) {
	p := l.pdf
	p.Ln(3)
	l.font.set(s, "B", 14)
	p.SetTextColor(accent[0], accent[1], accent[2])
	p.CellFormat(0, 8, s, "", 1, "L", false, 0, "")
	p.SetTextColor(0, 0, 0)
	p.Ln(1)
}

func (l *layout) field(label, value string) {
	p := l.pdf
	l.font.set(label, "B", 11)
	p.Write(lineMM, label+": ")
	l.font.set(value, "", 11)
	p.Write(lineMM, value)
	p.Ln(lineMM + 1)
}

func (l *layout) paragraph(s string, size float64) {
	p := l.pdf
	l.font.set(s, "", size)
	p.MultiCell(0, lineMM-1, s, "", "L", false)
	p.Ln(1)
}

func (l *layout) bullets(items []string, color [3]int) {
	p := l.pdf
	p.SetTextColor(color[0], color[1], color[2])
	for _, it := range items {
		it = "• " + it
		l.font.set(it, "", 11)
		p.MultiCell(0, lineMM, it, "", "L", false)
	}
	p.SetTextColor(0, 0, 0)
	p.Ln(1)
}

func (l *layout) rule() {
	p := l.pdf
	y := p.GetY() + 2
	p.SetDrawColor(200, 200, 200)
	p.Line(marginMM, y, marginMM+contentMM, y)
	p.SetY(y + 3)
}

func (l *layout) hotel(h render.HotelCard) {
	p := l.pdf
	if h.Image != "" {
		l.image(h.Image, hotelImgMM, hotelImgMM*0.66, false)
	}
	name := h.Name
	if h.Stars > 0 {
		name = fmt.Sprintf("%s (%d stars)", h.Name, h.Stars)
	}
	l.font.set(name, "B", 13)
	p.MultiCell(0, lineMM+1, name, "", "L", false)
	if h.Description != "" {
		p.SetTextColor(muted[0], muted[1], muted[2])
		l.paragraph(h.Description, 10)
		p.SetTextColor(0, 0, 0)
	}
	l.field("Room Type", h.RoomType)
	l.field("Meal Plan", h.MealPlan)
	if len(h.Amenities) > 0 {
		amenities := strings.Join(h.Amenities, "  |  ")
		l.font.set(amenities, "", 10)
		p.SetTextColor(accent[0], accent[1], accent[2])
		p.MultiCell(0, lineMM-1, amenities, "", "L", false)
		p.SetTextColor(0, 0, 0)
	}
	p.Ln(3)
}

func (l *layout) day(d render.Day) {
	p := l.pdf
	l.font.set(d.Label, "B", 11)
	p.SetTextColor(accent[0], accent[1], accent[2])
	p.CellFormat(0, lineMM, d.Label, "", 1, "L", false, 0, "")
	p.SetTextColor(0, 0, 0)
	if d.Heading != "" {
		l.font.set(d.Heading, "B", 13)
		p.MultiCell(0, lineMM+1, d.Heading, "", "L", false)
	}
	if d.Image != "" {
		l.image(d.Image, dayImgMM, dayImgMM*0.75, false)
	}
	for _, ln := range d.Content.Lines {
		if ln.Key == "" {
			l.paragraph(ln.Value, 10)
			continue
		}
		l.font.set(ln.Key, "B", 10)
		p.Write(lineMM-1, ln.Key+": ")
		l.font.set(ln.Value, "", 10)
		p.Write(lineMM-1, ln.Value)
		p.Ln(lineMM)
	}
	p.Ln(3)
}

// gallery prints the destination photos: the first across the page, the
// rest smaller, each captioned with its city.
func (l *layout) gallery() {
	for i, ph := range l.doc.Gallery {
		w, h := photoMaxMM*1.5, photoMaxMM
		if i == 0 {
			w, h = contentMM, heroMaxMM
		}
		if !l.image(ph.URL, w, h, true) {
			continue
		}
		p := l.pdf
		l.font.set(ph.City, "", 9)
		p.SetTextColor(muted[0], muted[1], muted[2])
		p.CellFormat(0, lineMM-2, ph.City, "", 1, "C", false, 0, "")
		p.SetTextColor(0, 0, 0)
		p.Ln(2)
	}
}

// image places src at the cursor, fitted into maxW x maxH millimetres, and
// reports whether it was printed.
func (l *layout) image(src string, maxW, maxH float64, center bool) bool {
	img, err := l.loader.Load(l.ctx, src, maxW*ptPerMM, maxH*ptPerMM)
	if err != nil {
		log.Warn().Err(err).Str("proposal", l.doc.ProposalID).Str("src", src).Msg("image skipped")
		return false
	}
	if img.Width == 0 || img.Height == 0 {
		return false
	}
	w := maxW
	h := w * float64(img.Height) / float64(img.Width)
	if h > maxH {
		h = maxH
		w = h * float64(img.Width) / float64(img.Height)
	}

	p := l.pdf
	l.images++
	name := fmt.Sprintf("img%d", l.images)
	opt := fpdf.ImageOptions{ImageType: img.Format}
	p.RegisterImageOptionsReader(name, opt, bytes.NewReader(img.Data))
	if p.Err() {
		log.Warn().Err(p.Error()).Str("proposal", l.doc.ProposalID).Str("src", src).Msg("image skipped")
		p.ClearError()
		return false
	}

	_, pageH := p.GetPageSize()
	if p.GetY()+h > pageH-marginMM {
		p.AddPage()
	}
	x := marginMM
	if center {
		x += (contentMM - w) / 2
	}
	y := p.GetY()
	p.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	p.SetY(y + h + 3)
	return true
}
