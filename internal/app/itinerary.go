package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/delonixservices/crm/internal/domain"
)

var validate = validator.New()

// ValidateStruct runs the struct tag rules and wraps failures in ErrValidation.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" is "+fe.Tag())
			}
			return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// DayCount is the inclusive number of calendar days between start and end.
// Each date is read in its own location, so DST shifts and mixed offsets
// do not change the count.
func DayCount(start, end time.Time) int {
	return int(civil(end).Sub(civil(start)).Hours()/24) + 1
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PlaceholderDays returns n empty days labelled "Day 1".."Day n".
func PlaceholderDays(n int) []domain.DayActivity {
	if n <= 0 {
		return []domain.DayActivity{}
	}
	out := make([]domain.DayActivity, n)
	for i := range out {
		out[i] = domain.DayActivity{Day: fmt.Sprintf("Day %d", i+1)}
	}
	return out
}

// ListField names one of the free-form string lists of a proposal.
type ListField string

const (
	Flights    ListField = "flights"
	Inclusions ListField = "inclusions"
	Exclusions ListField = "exclusions"
)

// Draft is the in-progress itinerary form. Zero value is not ready; use NewDraft.
type Draft struct {
	domain.Proposal
}

func NewDraft() *Draft {
	return &Draft{Proposal: domain.Proposal{
		Flights:            []string{""},
		Inclusions:         []string{""},
		Exclusions:         []string{""},
		HotelInfo:          domain.HotelInfo{Hotels: []domain.Hotel{}},
		Activities:         []domain.DayActivity{},
		TermsAndConditions: domain.TermsAndConditions{Include: "no"},
		TravelInsurance:    domain.TravelInsurance{Include: "no"},
	}}
}

func (d *Draft) SetStartDate(t time.Time) error { return d.SetDates(&t, d.ClientInfo.EndDate) }
func (d *Draft) SetEndDate(t time.Time) error   { return d.SetDates(d.ClientInfo.StartDate, &t) }

// SetDates stores the trip range. Once both ends are known the activities are
// rebuilt from scratch, one placeholder per day; existing day edits are dropped.
func (d *Draft) SetDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return domain.ErrInvalidDateRange
	}
	d.ClientInfo.StartDate = copyTime(start)
	d.ClientInfo.EndDate = copyTime(end)
	if start != nil && end != nil {
		d.Activities = PlaceholderDays(DayCount(*start, *end))
	}
	return nil
}

// SelectActivity copies a catalog activity into day i.
func (d *Draft) SelectActivity(i int, a domain.Activity) error {
	if i < 0 || i >= len(d.Activities) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidDay, i)
	}
	day := &d.Activities[i]
	day.Heading = a.Name
	day.Image = a.Image
	day.Content = ActivityContent(a)
	return nil
}

// EditDay overwrites the heading and content typed in by hand for day i.
func (d *Draft) EditDay(i int, heading, content string) error {
	if i < 0 || i >= len(d.Activities) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidDay, i)
	}
	d.Activities[i].Heading = heading
	d.Activities[i].Content = content
	return nil
}

// ActivityContent is the text block written into a day when an activity is picked.
func ActivityContent(a domain.Activity) string {
	return fmt.Sprintf("Activity: %s\nDescription: %s\nPrice: ₹%s\nDuration: %s hours\nCategories: %s",
		a.Name, a.Description, formatNumber(a.Price), formatNumber(a.Duration),
		strings.Join(a.SelectedCategories, ", "))
}

func (d *Draft) AddHotel(h domain.Hotel) {
	d.HotelInfo.Hotels = append(d.HotelInfo.Hotels, h)
}

// SelectHotel appends the hotel of city whose id or name equals key.
func (d *Draft) SelectHotel(hotelsByCity map[string][]domain.Hotel, city, key string) (domain.Hotel, error) {
	for _, h := range hotelsByCity[city] {
		if (h.ID != "" && h.ID == key) || h.Name == key {
			h.SelectedAmenities = append([]string(nil), h.SelectedAmenities...)
			d.AddHotel(h)
			return h, nil
		}
	}
	return domain.Hotel{}, fmt.Errorf("hotel %q in %q: %w", key, city, domain.ErrNotFound)
}

// AddCustomHotel appends a hotel that is not in the catalog.
func (d *Draft) AddCustomHotel(name, description string) (domain.Hotel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Hotel{}, fmt.Errorf("%w: hotel name is required", domain.ErrValidation)
	}
	h := domain.Hotel{
		ID:          "custom-" + uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		IsCustom:    true,
	}
	d.AddHotel(h)
	return h, nil
}

func (d *Draft) RemoveHotel(i int) error {
	hs := d.HotelInfo.Hotels
	if i < 0 || i >= len(hs) {
		return fmt.Errorf("hotel %d: %w", i, domain.ErrNotFound)
	}
	d.HotelInfo.Hotels = append(hs[:i:i], hs[i+1:]...)
	return nil
}

func (d *Draft) list(f ListField) (*[]string, error) {
	switch f {
	case Flights:
		return &d.Flights, nil
	case Inclusions:
		return &d.Inclusions, nil
	case Exclusions:
		return &d.Exclusions, nil
	}
	return nil, fmt.Errorf("%w: unknown list %q", domain.ErrValidation, f)
}

func (d *Draft) AddEntry(f ListField) error {
	l, err := d.list(f)
	if err != nil {
		return err
	}
	*l = append(*l, "")
	return nil
}

func (d *Draft) SetEntry(f ListField, i int, v string) error {
	l, err := d.list(f)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(*l) {
		return fmt.Errorf("%s[%d]: %w", f, i, domain.ErrNotFound)
	}
	(*l)[i] = v
	return nil
}

func (d *Draft) RemoveEntry(f ListField, i int) error {
	l, err := d.list(f)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(*l) {
		return fmt.Errorf("%s[%d]: %w", f, i, domain.ErrNotFound)
	}
	*l = append((*l)[:i:i], (*l)[i+1:]...)
	return nil
}

// BuildSubmission validates the draft and returns the payload posted to the
// backend. The draft itself is left unchanged.
func (d *Draft) BuildSubmission() (domain.Proposal, error) {
	if err := ValidateStruct(d.ClientInfo); err != nil {
		return domain.Proposal{}, err
	}
	p := d.Proposal
	p.ID = ""

	names := d.ClientInfo.DestinationAreas.Names()
	p.ClientInfo.DestinationAreas = make(domain.Destinations, len(names))
	for i, n := range names {
		p.ClientInfo.DestinationAreas[i] = domain.Destination{CityName: n}
	}
	p.ClientInfo.StartDate = utc(d.ClientInfo.StartDate)
	p.ClientInfo.EndDate = utc(d.ClientInfo.EndDate)

	p.Flights = nonEmpty(d.Flights)
	p.Inclusions = nonEmpty(d.Inclusions)
	p.Exclusions = nonEmpty(d.Exclusions)

	p.HotelInfo.Hotels = make([]domain.Hotel, len(d.HotelInfo.Hotels))
	for i, h := range d.HotelInfo.Hotels {
		h.SelectedAmenities = append([]string(nil), h.SelectedAmenities...)
		p.HotelInfo.Hotels[i] = h
	}

	p.Activities = make([]domain.DayActivity, len(d.Activities))
	for i, a := range d.Activities {
		if a.Day == "" {
			a.Day = fmt.Sprintf("Day %d", i+1)
		}
		p.Activities[i] = a
	}

	if !p.TermsAndConditions.Included() {
		p.TermsAndConditions.Include = "no"
	}
	if !p.TravelInsurance.Included() {
		p.TravelInsurance.Include = "no"
	}
	return p, nil
}

// ItineraryService assembles drafts from catalog picks and saves them.
type ItineraryService struct {
	store   domain.ProposalStore
	catalog *CatalogService
}

// NewItineraryService returns the service. catalog may be nil when no
// hotel or activity picks will be applied.
func NewItineraryService(s domain.ProposalStore, catalog *CatalogService) *ItineraryService {
	return &ItineraryService{store: s, catalog: catalog}
}

// Submit posts the draft and returns the new proposal id.
func (s *ItineraryService) Submit(ctx context.Context, d *Draft) (string, error) {
	p, err := d.BuildSubmission()
	if err != nil {
		return "", err
	}
	id, err := s.store.CreateProposal(ctx, p)
	if err != nil {
		return "", fmt.Errorf("create proposal: %w", err)
	}
	return id, nil
}

// Create fills a new draft from c and submits it.
func (s *ItineraryService) Create(ctx context.Context, c Changes) (string, error) {
	d := NewDraft()
	if err := s.Apply(ctx, d, c); err != nil {
		return "", err
	}
	return s.Submit(ctx, d)
}

// Update opens the stored proposal as a draft, applies c and saves it back.
// Moving either date regenerates the days like on a new form.
func (s *ItineraryService) Update(ctx context.Context, id string, c Changes) (domain.Proposal, error) {
	stored, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return domain.Proposal{}, err
	}
	d := DraftFrom(stored)
	if err := s.Apply(ctx, d, c); err != nil {
		return domain.Proposal{}, err
	}
	p, err := d.BuildSubmission()
	if err != nil {
		return domain.Proposal{}, err
	}
	p.ID = id
	out, err := s.store.UpdateProposal(ctx, p)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("update proposal %s: %w", id, err)
	}
	return out, nil
}

/********** helpers **********/

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// formatNumber prints whole numbers without a fraction ("100", "2.5").
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
