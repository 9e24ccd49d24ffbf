package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/delonixservices/crm/internal/adapters/observability"
	"github.com/delonixservices/crm/internal/domain"
	"github.com/delonixservices/crm/internal/render"
)

const (
	DefaultSubject = "Your Proposal"
	DefaultText    = "Please find the attached proposal."
	DefaultHTML    = "<b>Attached is your PDF</b>"
)

type EmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// ProposalService renders stored proposals and delivers their PDFs.
type ProposalService struct {
	store  domain.ProposalStore
	docs   domain.DocumentGenerator
	mailer domain.Mailer
	ledger domain.Ledger
	photos domain.PhotoSearch
	now    func() time.Time
}

// NewProposalService wires the service. ledger and photos may be nil.
func NewProposalService(store domain.ProposalStore, docs domain.DocumentGenerator, mailer domain.Mailer,
	ledger domain.Ledger, photos domain.PhotoSearch) *ProposalService {
	return &ProposalService{store: store, docs: docs, mailer: mailer, ledger: ledger, photos: photos, now: time.Now}
}

func (s *ProposalService) List(ctx context.Context) ([]domain.Proposal, error) {
	return s.store.ListProposals(ctx)
}

func (s *ProposalService) Get(ctx context.Context, id string) (domain.Proposal, error) {
	return s.store.GetProposal(ctx, id)
}

// View builds the on-screen document, including the destination and flight photos.
func (s *ProposalService) View(ctx context.Context, id string) (render.Document, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return render.Document{}, err
	}
	return render.Build(p, render.CollectPhotos(ctx, s.photos, p)), nil
}

// PDF generates the proposal document and records it in the ledger.
func (s *ProposalService) PDF(ctx context.Context, id string) (domain.GeneratedDocument, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return domain.GeneratedDocument{}, err
	}
	doc, err := s.docs.Generate(ctx, p)
	if err != nil {
		return domain.GeneratedDocument{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if s.ledger != nil {
		sum := sha256.Sum256(doc.Bytes)
		rec := domain.DocumentRecord{
			ID:         uuid.New().String(),
			ProposalID: id,
			Filename:   doc.Filename,
			SHA256:     hex.EncodeToString(sum[:]),
			SizeBytes:  len(doc.Bytes),
			Pages:      doc.Pages,
			CreatedAt:  s.now().UTC(),
		}
		if err := s.ledger.RecordDocument(ctx, rec); err != nil {
			log.Warn().Err(err).Str("proposal", id).Msg("record document failed")
		}
	}
	return doc, nil
}

// Email generates the PDF and sends it as a base64 attachment. Delivery is
// attempted once; the outcome is recorded either way.
func (s *ProposalService) Email(ctx context.Context, id string, req EmailRequest) error {
	if err := ValidateStruct(req); err != nil {
		return err
	}
	doc, err := s.PDF(ctx, id)
	if err != nil {
		return err
	}
	msg := domain.Email{
		To:         req.To,
		Subject:    orDefault(req.Subject, DefaultSubject),
		Text:       orDefault(req.Text, DefaultText),
		HTML:       orDefault(req.HTML, DefaultHTML),
		Attachment: base64.StdEncoding.EncodeToString(doc.Bytes),
	}
	err = s.mailer.SendEmail(ctx, msg)
	observability.ObserveDispatch(err)
	s.recordDispatch(ctx, id, req.To, err)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	log.Info().Str("proposal", id).Str("to", req.To).Int("bytes", len(doc.Bytes)).Msg("proposal emailed")
	return nil
}

// Documents lists the most recent generated PDFs and e-mails of a proposal.
func (s *ProposalService) Documents(ctx context.Context, id string, limit int) (domain.DocumentsPage, error) {
	if s.ledger == nil {
		return domain.DocumentsPage{Documents: []domain.DocumentRecord{}, Dispatches: []domain.DispatchRecord{}}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ledger.ListDocuments(ctx, id, limit)
}

func (s *ProposalService) recordDispatch(ctx context.Context, id, to string, sendErr error) {
	if s.ledger == nil {
		return
	}
	rec := domain.DispatchRecord{
		ID:         uuid.New().String(),
		ProposalID: id,
		Recipient:  to,
		Status:     domain.DispatchSent,
		CreatedAt:  s.now().UTC(),
	}
	if sendErr != nil {
		msg := sendErr.Error()
		rec.Status = domain.DispatchFailed
		rec.Error = &msg
	}
	if err := s.ledger.RecordDispatch(ctx, rec); err != nil {
		log.Warn().Err(err).Str("proposal", id).Msg("record dispatch failed")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
