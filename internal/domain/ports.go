package domain

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidDateRange = errors.New("end date is before start date")
	ErrInvalidDay       = errors.New("day index out of range")
	ErrGeneration       = errors.New("document generation failed")
)

// CatalogSource returns raw catalog payloads; shapes vary between backend
// versions so mapping happens in the app layer.
type CatalogSource interface {
	SearchCities(ctx context.Context, query string) ([]map[string]any, error)
	CityHotels(ctx context.Context, city string) ([]map[string]any, error)
	CityActivities(ctx context.Context, city string) ([]map[string]any, error)
}

type ProposalStore interface {
	ListProposals(ctx context.Context) ([]Proposal, error)
	GetProposal(ctx context.Context, id string) (Proposal, error)
	CreateProposal(ctx context.Context, p Proposal) (string, error)
	UpdateProposal(ctx context.Context, p Proposal) (Proposal, error)
}

type LeadStore interface {
	ListLeads(ctx context.Context) ([]Lead, error)
	SearchLeads(ctx context.Context, q string) ([]Lead, error)
	GetLead(ctx context.Context, id string) (Lead, error)
	CreateLead(ctx context.Context, l Lead) (Lead, error)
	UpdateLead(ctx context.Context, l Lead) (Lead, error)
	UploadLeads(ctx context.Context, filename string, r io.Reader) (map[string]any, error)
	ListMessages(ctx context.Context, leadID string) ([]LeadMessage, error)
	PostMessage(ctx context.Context, leadID string, m LeadMessage) (LeadMessage, error)
}

type Mailer interface {
	SendEmail(ctx context.Context, e Email) error
}

type PhotoSearch interface {
	SearchPhoto(ctx context.Context, query string) (string, error)
}

type DocumentGenerator interface {
	Generate(ctx context.Context, p Proposal) (GeneratedDocument, error)
}

type Ledger interface {
	RecordDocument(ctx context.Context, d DocumentRecord) error
	RecordDispatch(ctx context.Context, d DispatchRecord) error
	ListDocuments(ctx context.Context, proposalID string, limit int) (DocumentsPage, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Email is the payload accepted by the backend mail endpoint. Attachment is
// base64 without a data-URI prefix.
type Email struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	Attachment string `json:"attachment,omitempty"`
}

type GeneratedDocument struct {
	Filename string
	Bytes    []byte
	Pages    int
}

// Image is a decoded and re-encoded picture ready to embed in a PDF.
// Format is "JPG" or "PNG".
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// ImageLoader fetches an image from a URL, data URI or file path. boxW and
// boxH bound the printed size in points; zero leaves the image unscaled.
type ImageLoader interface {
	Load(ctx context.Context, src string, boxW, boxH float64) (Image, error)
}
