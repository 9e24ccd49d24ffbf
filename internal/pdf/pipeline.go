package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/delonixservices/crm/internal/adapters/observability"
	"github.com/delonixservices/crm/internal/domain"
	"github.com/delonixservices/crm/internal/render"
)

// Artifact is a finished proposal PDF.
type Artifact = domain.GeneratedDocument

// Brand locates the branding material. Logo and QR are loaded per document
// so that replacing the files takes effect without a restart.
type Brand struct {
	LogoPath     string
	QRPath       string
	Website      string
	PaymentLines []string
}

type Pipeline struct {
	photos domain.PhotoSearch
	images domain.ImageLoader
	brand  Brand
}

// NewPipeline wires the two stages. photos may be nil, in which case documents
// have no destination or flight photos.
func NewPipeline(photos domain.PhotoSearch, images domain.ImageLoader, brand Brand) *Pipeline {
	return &Pipeline{photos: photos, images: images, brand: brand}
}

// Filename is the download name of a proposal's PDF.
func Filename(p domain.Proposal) string {
	return p.ClientInfo.Name + "_trip_to_" + p.ClientInfo.DestinationAreas.String() + ".pdf"
}

// Generate runs both stages. No bytes are returned unless both succeed.
func (pl *Pipeline) Generate(ctx context.Context, p domain.Proposal) (Artifact, error) {
	start := time.Now()
	doc := render.Build(p, render.CollectPhotos(ctx, pl.photos, p))

	raw, err := Layout(ctx, doc, pl.images)
	observability.ObserveStage("layout", err)
	if err != nil {
		return Artifact{}, err
	}

	b, err := pl.branding(ctx, doc.Title)
	if err != nil {
		observability.ObserveStage("compose", err)
		return Artifact{}, err
	}
	out, err := Compose(ctx, raw, b)
	observability.ObserveStage("compose", err)
	if err != nil {
		return Artifact{}, err
	}

	pages, err := PageCount(out)
	if err != nil {
		return Artifact{}, fmt.Errorf("verify output: %w", err)
	}
	observability.ObserveDocument(len(out))
	log.Info().
		Str("proposal", p.ID).
		Int("pages", pages).
		Int("bytes", len(out)).
		Dur("took", time.Since(start)).
		Msg("proposal pdf generated")
	return Artifact{Filename: Filename(p), Bytes: out, Pages: pages}, nil
}

func (pl *Pipeline) branding(ctx context.Context, title string) (Branding, error) {
	logo, err := pl.images.Load(ctx, pl.brand.LogoPath, logoMaxW, 0)
	if err != nil {
		return Branding{}, fmt.Errorf("load logo: %w", err)
	}
	qr, err := pl.images.Load(ctx, pl.brand.QRPath, qrMaxW, 0)
	if err != nil {
		return Branding{}, fmt.Errorf("load payment qr: %w", err)
	}
	return Branding{
		Title:        title,
		Website:      pl.brand.Website,
		Logo:         logo,
		QR:           qr,
		PaymentLines: pl.brand.PaymentLines,
	}, nil
}
