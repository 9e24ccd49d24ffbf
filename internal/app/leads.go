package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/delonixservices/crm/internal/domain"
)

const notSet = "Not set"

// leadField reads and writes one editable lead attribute as text.
type leadField struct {
	get func(*domain.Lead) string
	set func(*domain.Lead, string) error
}

func strField(p func(*domain.Lead) *string) leadField {
	return leadField{
		get: func(l *domain.Lead) string { return *p(l) },
		set: func(l *domain.Lead, v string) error { *p(l) = v; return nil },
	}
}

func intField(name string, p func(*domain.Lead) *int) leadField {
	return leadField{
		get: func(l *domain.Lead) string {
			if n := *p(l); n != 0 {
				return strconv.Itoa(n)
			}
			return ""
		},
		set: func(l *domain.Lead, v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				*p(l) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrValidation, name)
			}
			*p(l) = n
			return nil
		},
	}
}

var leadFields = map[string]leadField{
	"name":               strField(func(l *domain.Lead) *string { return &l.Name }),
	"contact":            strField(func(l *domain.Lead) *string { return &l.Contact }),
	"email":              strField(func(l *domain.Lead) *string { return &l.Email }),
	"dateOfTravel":       strField(func(l *domain.Lead) *string { return &l.DateOfTravel }),
	"destination":        strField(func(l *domain.Lead) *string { return &l.Destination }),
	"numberofPacks":      strField(func(l *domain.Lead) *string { return &l.NumberOfPacks }),
	"departureCity":      strField(func(l *domain.Lead) *string { return &l.DepartureCity }),
	"budget":             strField(func(l *domain.Lead) *string { return &l.Budget }),
	"leadSource":         strField(func(l *domain.Lead) *string { return &l.LeadSource }),
	"assignee":           strField(func(l *domain.Lead) *string { return &l.Assignee }),
	"leadStatus":         strField(func(l *domain.Lead) *string { return &l.LeadStatus }),
	"verificationStatus": strField(func(l *domain.Lead) *string { return &l.VerificationStatus }),
	"needOfFlight":       strField(func(l *domain.Lead) *string { return &l.NeedOfFlight }),
	"notes":              strField(func(l *domain.Lead) *string { return &l.Notes }),
	"numberOfDays":       intField("numberOfDays", func(l *domain.Lead) *int { return &l.NumberOfDays }),
	"rooms":              intField("rooms", func(l *domain.Lead) *int { return &l.NumberOfClients.Rooms }),
	"adults":             intField("adults", func(l *domain.Lead) *int { return &l.NumberOfClients.Adults }),
	"children":           intField("children", func(l *domain.Lead) *int { return &l.NumberOfClients.Children }),
}

// LeadService edits leads and keeps their change history.
type LeadService struct {
	store domain.LeadStore
	now   func() time.Time
}

func NewLeadService(s domain.LeadStore) *LeadService {
	return &LeadService{store: s, now: time.Now}
}

// Create stores a new lead. History starts empty whatever the caller sent.
func (s *LeadService) Create(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	if err := ValidateStruct(l); err != nil {
		return domain.Lead{}, err
	}
	l.ID = ""
	l.LastEdited = nil
	l.EditHistory = nil
	l.Timestamp = s.now().UTC().Format(time.RFC3339)
	return s.store.CreateLead(ctx, l)
}

// Update applies field edits to the stored lead. Every field whose value
// actually changes adds one entry to the edit history; earlier entries are
// never rewritten.
func (s *LeadService) Update(ctx context.Context, id string, changes map[string]string) (domain.Lead, error) {
	fields := make([]string, 0, len(changes))
	for f := range changes {
		if _, ok := leadFields[f]; !ok {
			return domain.Lead{}, fmt.Errorf("%w: field %q is not editable", domain.ErrValidation, f)
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)

	l, err := s.store.GetLead(ctx, id)
	if err != nil {
		return domain.Lead{}, err
	}

	now := s.now().UTC()
	var edits []domain.EditChange
	for _, f := range fields {
		lf := leadFields[f]
		old := lf.get(&l)
		if err := lf.set(&l, changes[f]); err != nil {
			return domain.Lead{}, err
		}
		if nv := lf.get(&l); nv != old {
			edits = append(edits, domain.EditChange{
				Field:     f,
				OldValue:  orNotSet(old),
				NewValue:  orNotSet(nv),
				Timestamp: now,
			})
		}
	}
	if len(edits) == 0 {
		return l, nil
	}
	l.NumberOfClients.ChildrenAges = resizeAges(l.NumberOfClients.ChildrenAges, l.NumberOfClients.Children)
	if err := ValidateStruct(l); err != nil {
		return domain.Lead{}, err
	}

	l.Timestamp = now.Format(time.RFC3339)
	l.LastEdited = &domain.LastEdited{Timestamp: now, Changes: edits}
	l.EditHistory = append(l.EditHistory, edits...)
	return s.store.UpdateLead(ctx, l)
}

// Import forwards a lead spreadsheet to the backend bulk upload.
func (s *LeadService) Import(ctx context.Context, filename string, r io.Reader) (map[string]any, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrValidation)
	}
	return s.store.UploadLeads(ctx, filename, r)
}

// List returns every lead, or the backend's advanced-search matches when q is set.
func (s *LeadService) List(ctx context.Context, q string) ([]domain.Lead, error) {
	if q = strings.TrimSpace(q); q != "" {
		return s.store.SearchLeads(ctx, q)
	}
	return s.store.ListLeads(ctx)
}

func (s *LeadService) Messages(ctx context.Context, leadID string) ([]domain.LeadMessage, error) {
	return s.store.ListMessages(ctx, leadID)
}

func (s *LeadService) PostMessage(ctx context.Context, leadID string, m domain.LeadMessage) (domain.LeadMessage, error) {
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return domain.LeadMessage{}, fmt.Errorf("%w: message text is required", domain.ErrValidation)
	}
	m.LeadID = leadID
	return s.store.PostMessage(ctx, leadID, m)
}

func orNotSet(s string) string {
	if s == "" {
		return notSet
	}
	return s
}

// resizeAges keeps one age slot per child, preserving entered ages.
func resizeAges(ages []string, children int) []string {
	if children < 0 {
		children = 0
	}
	out := make([]string, children)
	copy(out, ages)
	return out
}
