package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/delonixservices/crm/internal/domain"
)

func init() {
	api.DisableConfigDir()
}

// Overlay geometry in points, measured from the page edges.
const (
	SafeZone      = 30.0
	borderPad     = 10.0
	logoMaxW      = 40.0
	buttonOffset  = 15.0
	buttonH       = 20.0
	footerOffset  = 20.0
	titleSize     = 25.0
	titleTop      = 50.0
	paymentTop    = 100.0
	qrTop         = 150.0
	qrMaxW        = 200.0
	qrGap         = 30.0
	qrMinBottom   = 100.0
	lineSpacing   = 25.0
	linesMinBelow = 30.0
)

var ErrNoPages = errors.New("pdf has no pages")

// Branding is the material stamped on every page.
type Branding struct {
	Title        string
	Website      string
	Logo         domain.Image
	QR           domain.Image
	PaymentLines []string
}

// Compose re-opens raw, appends the payment page and stamps every page.
func Compose(ctx context.Context, raw RawPDF, b Branding) ([]byte, error) {
	n, err := PageCount(raw.Bytes)
	if err != nil {
		return nil, fmt.Errorf("compose: read stage one: %w", err)
	}
	if n == 0 {
		return nil, ErrNoPages
	}
	if b.Logo.Width == 0 || b.QR.Width == 0 {
		return nil, errors.New("compose: logo and payment QR are required")
	}
	return compose(ctx, raw.Bytes, n, b)
}

func compose(ctx context.Context, raw []byte, n int, b Branding) (out []byte, err error) {
	// the importer panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("compose: import pages: %v", r)
		}
	}()

	p := fpdf.New("P", "pt", "A4", "")
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	f := newFonts(p)

	p.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: b.Logo.Format}, bytes.NewReader(b.Logo.Data))
	p.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: b.QR.Format}, bytes.NewReader(b.QR.Data))
	if p.Err() {
		return nil, fmt.Errorf("compose: embed branding: %w", p.Error())
	}

	imp := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(raw)
	tpls := make([]int, n)
	for i := range tpls {
		tpls[i] = imp.ImportPageFromStream(p, &rs, i+1, "/MediaBox")
	}

	total := n + 1
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.AddPage()
		w, h := p.GetPageSize()
		if i <= n {
			imp.UseImportedTemplate(p, tpls[i-1], 0, 0, w, h)
		}
		stampPage(p, f, b, i, total)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	return buf.Bytes(), nil
}

func stampPage(p *fpdf.Fpdf, f *fonts, b Branding, page, total int) {
	w, h := p.GetPageSize()
	safeW := w - 2*SafeZone
	safeH := h - 2*SafeZone

	// border
	p.SetAlpha(0.5, "Normal")
	p.SetDrawColor(0, 0, 0)
	p.SetLineWidth(1)
	p.Rect(SafeZone-borderPad, SafeZone-borderPad, safeW+2*borderPad, safeH+2*borderPad, "D")
	p.SetAlpha(1, "Normal")

	// logo, top right
	lw := math.Min(logoMaxW, safeW*0.2)
	lh := lw * float64(b.Logo.Height) / float64(b.Logo.Width)
	p.ImageOptions("logo", w-lw-SafeZone, SafeZone, lw, lh, false, fpdf.ImageOptions{ImageType: b.Logo.Format}, 0, "")

	// website button, bottom centre
	site := "Visit Our Website: " + b.Website
	f.set(site, "", 12)
	tw := p.GetStringWidth(site)
	bw := math.Min(tw+20, safeW)
	bx := (w - bw) / 2
	p.SetFillColor(26, 120, 209)
	p.Rect(bx, h-SafeZone-buttonOffset-buttonH, bw, buttonH, "F")
	p.SetTextColor(255, 255, 255)
	p.Text(bx+(bw-tw)/2, h-SafeZone-footerOffset, site)

	// page number, bottom right
	num := fmt.Sprintf("Page %d of %d", page, total)
	f.set(num, "", 10)
	p.SetTextColor(128, 128, 128)
	p.Text(w-p.GetStringWidth(num)-SafeZone, h-SafeZone-footerOffset, num)
	p.SetTextColor(0, 0, 0)

	if page == 1 {
		f.set(b.Title, "", titleSize)
		size := FitFontSize(p.GetStringWidth(b.Title), titleSize, safeW)
		f.set(b.Title, "", size)
		p.Text((w-p.GetStringWidth(b.Title))/2, titleTop, b.Title)
	}
	if page == total {
		stampPayment(p, f, b, w, h)
	}
}

func stampPayment(p *fpdf.Fpdf, f *fonts, b Branding, w, h float64) {
	heading := "Payment Details"
	f.set(heading, "B", 20)
	p.Text((w-p.GetStringWidth(heading))/2, paymentTop, heading)

	pl := PlanPayment(w, h, float64(b.QR.Width), float64(b.QR.Height), len(b.PaymentLines))
	if !pl.ShowQR {
		return
	}
	p.ImageOptions("qr", (w-pl.QRWidth)/2, pl.QRTop, pl.QRWidth, pl.QRHeight, false, fpdf.ImageOptions{ImageType: b.QR.Format}, 0, "")
	for i, y := range pl.Baselines {
		s := b.PaymentLines[i]
		if i == 0 {
			f.set(s, "B", 14)
		} else {
			f.set(s, "", 12)
		}
		p.Text((w-p.GetStringWidth(s))/2, y, s)
	}
}

// FitFontSize shrinks size proportionally when a text measuring width at size
// would not fit into avail.
func FitFontSize(width, size, avail float64) float64 {
	if width <= avail || width == 0 {
		return size
	}
	return size * avail / width
}

// PaymentPlan positions the payment block of the last page, in top-down
// page coordinates. Lines that would fall into the bottom safe zone are
// dropped, and Baselines holds only the lines that fit.
type PaymentPlan struct {
	ShowQR    bool
	QRWidth   float64
	QRHeight  float64
	QRTop     float64
	Baselines []float64
}

func PlanPayment(pageW, pageH, imgW, imgH float64, lines int) PaymentPlan {
	safeW := pageW - 2*SafeZone
	qw := math.Min(qrMaxW, safeW*0.8)
	if imgW <= 0 {
		return PaymentPlan{}
	}
	qh := qw * imgH / imgW
	// distance of the QR's lower edge from the page bottom
	bottom := pageH - qrTop - qh
	if bottom < SafeZone+qrMinBottom {
		return PaymentPlan{QRWidth: qw, QRHeight: qh}
	}
	pl := PaymentPlan{ShowQR: true, QRWidth: qw, QRHeight: qh, QRTop: qrTop}
	y := bottom - qrGap
	for i := 0; i < lines; i++ {
		if y < SafeZone+linesMinBelow {
			break
		}
		pl.Baselines = append(pl.Baselines, pageH-y)
		y -= lineSpacing
	}
	return pl
}

// PageCount validates a PDF and returns its number of pages.
func PageCount(b []byte) (int, error) {
	return api.PageCount(bytes.NewReader(b), model.NewDefaultConfiguration())
}
