package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/delonixservices/crm/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakeCatalog struct {
	cities     []map[string]any
	hotels     map[string][]map[string]any
	activities map[string][]map[string]any
	failCity   string
	calls      int32
	// gate, when set, holds SearchCities until closed or ctx is done.
	gate chan struct{}
}

func (f *fakeCatalog) SearchCities(ctx context.Context, q string) ([]map[string]any, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.cities, nil
}

func (f *fakeCatalog) CityHotels(ctx context.Context, city string) ([]map[string]any, error) {
	atomic.AddInt32(&f.calls, 1)
	if city == f.failCity {
		return nil, errors.New("bad status 500")
	}
	return f.hotels[city], nil
}

func (f *fakeCatalog) CityActivities(ctx context.Context, city string) ([]map[string]any, error) {
	atomic.AddInt32(&f.calls, 1)
	if city == f.failCity {
		return nil, errors.New("bad status 500")
	}
	return f.activities[city], nil
}

type fakeProposals struct {
	byID    map[string]domain.Proposal
	created []domain.Proposal
	updated []domain.Proposal
}

func (f *fakeProposals) ListProposals(ctx context.Context) ([]domain.Proposal, error) {
	out := make([]domain.Proposal, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProposals) GetProposal(ctx context.Context, id string) (domain.Proposal, error) {
	p, ok := f.byID[id]
	if !ok {
		return domain.Proposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProposals) CreateProposal(ctx context.Context, p domain.Proposal) (string, error) {
	f.created = append(f.created, p)
	return "new-id", nil
}

func (f *fakeProposals) UpdateProposal(ctx context.Context, p domain.Proposal) (domain.Proposal, error) {
	f.updated = append(f.updated, p)
	f.byID[p.ID] = p
	return p, nil
}

type fakeLeads struct {
	lead     domain.Lead
	updated  []domain.Lead
	upload   string
	query    string
	messages []domain.LeadMessage
}

func (f *fakeLeads) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	return []domain.Lead{f.lead}, nil
}
func (f *fakeLeads) SearchLeads(ctx context.Context, q string) ([]domain.Lead, error) {
	f.query = q
	return nil, nil
}
func (f *fakeLeads) ListMessages(ctx context.Context, id string) ([]domain.LeadMessage, error) {
	return f.messages, nil
}
func (f *fakeLeads) PostMessage(ctx context.Context, id string, m domain.LeadMessage) (domain.LeadMessage, error) {
	m.ID = "m-new"
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeLeads) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	if id != f.lead.ID {
		return domain.Lead{}, domain.ErrNotFound
	}
	return f.lead, nil
}
func (f *fakeLeads) CreateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	l.ID = "l-new"
	return l, nil
}
func (f *fakeLeads) UpdateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	f.updated = append(f.updated, l)
	f.lead = l
	return l, nil
}
func (f *fakeLeads) UploadLeads(ctx context.Context, filename string, r io.Reader) (map[string]any, error) {
	b, _ := io.ReadAll(r)
	f.upload = filename + ":" + string(b)
	return map[string]any{"inserted": float64(1)}, nil
}

type fakeGenerator struct {
	doc domain.GeneratedDocument
	err error
}

func (f fakeGenerator) Generate(ctx context.Context, p domain.Proposal) (domain.GeneratedDocument, error) {
	return f.doc, f.err
}

type fakeMailer struct {
	sent []domain.Email
	err  error
}

func (f *fakeMailer) SendEmail(ctx context.Context, e domain.Email) error {
	f.sent = append(f.sent, e)
	return f.err
}

type fakeLedger struct {
	docs       []domain.DocumentRecord
	dispatches []domain.DispatchRecord
}

func (f *fakeLedger) RecordDocument(ctx context.Context, d domain.DocumentRecord) error {
	f.docs = append(f.docs, d)
	return nil
}
func (f *fakeLedger) RecordDispatch(ctx context.Context, d domain.DispatchRecord) error {
	f.dispatches = append(f.dispatches, d)
	return nil
}
func (f *fakeLedger) ListDocuments(ctx context.Context, id string, limit int) (domain.DocumentsPage, error) {
	return domain.DocumentsPage{Documents: f.docs, Dispatches: f.dispatches}, nil
}

type fakePhotos struct {
	url   string
	calls int32
	gate  chan struct{}
	// byQuery overrides url per query; a missing query falls back to url.
	byQuery map[string]string
	fail    map[string]bool
	mu      sync.Mutex
	queries []string
}

func (f *fakePhotos) SearchPhoto(ctx context.Context, q string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail[q] {
		return "", errors.New("photo search: bad status 403")
	}
	if u, ok := f.byQuery[q]; ok {
		return u, nil
	}
	return f.url, nil
}

func ptr[T any](v T) *T { return &v }
