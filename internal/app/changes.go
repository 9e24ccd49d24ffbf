package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/delonixservices/crm/internal/domain"
)

// Changes is one round of edits to an itinerary form. Steps run in field
// order: client details and dates first, then lists, hotels, days and the
// optional sections. Day numbers are 1-based.
type Changes struct {
	ClientInfo *domain.ClientInfo `json:"clientInfo,omitempty"`
	StartDate  *time.Time         `json:"startDate,omitempty"`
	EndDate    *time.Time         `json:"endDate,omitempty"`

	// Non-nil lists replace the whole list; Entries then edit single rows.
	Flights    []string    `json:"flights,omitempty"`
	Inclusions []string    `json:"inclusions,omitempty"`
	Exclusions []string    `json:"exclusions,omitempty"`
	Entries    []EntryEdit `json:"entries,omitempty"`

	RemoveHotels []int         `json:"removeHotels,omitempty"`
	Hotels       []HotelPick   `json:"hotels,omitempty"`
	CustomHotels []CustomHotel `json:"customHotels,omitempty"`

	Activities []ActivityPick `json:"activities,omitempty"`
	DayEdits   []DayEdit      `json:"dayEdits,omitempty"`

	Visa               *domain.Visa               `json:"visa,omitempty"`
	TermsAndConditions *domain.TermsAndConditions `json:"termsAndConditions,omitempty"`
	TravelInsurance    *domain.TravelInsurance    `json:"travelInsurance,omitempty"`
}

// HotelPick selects a catalog hotel of City by id or name.
type HotelPick struct {
	City string `json:"city"`
	Key  string `json:"idOrName"`
}

type CustomHotel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActivityPick copies a catalog activity, found by id or name, into Day.
// City narrows the catalog lookup; empty searches every destination.
type ActivityPick struct {
	Day      int    `json:"day"`
	City     string `json:"city,omitempty"`
	Activity string `json:"activityId"`
}

type DayEdit struct {
	Day     int    `json:"day"`
	Heading string `json:"heading"`
	Content string `json:"content"`
}

const (
	EntryAdd    = "add"
	EntrySet    = "set"
	EntryRemove = "remove"
)

// EntryEdit is one row operation on a free-form list.
type EntryEdit struct {
	List  ListField `json:"list"`
	Op    string    `json:"op"`
	Index int       `json:"index"`
	Value string    `json:"value"`
}

// DraftFrom opens a stored proposal for editing.
func DraftFrom(p domain.Proposal) *Draft {
	d := &Draft{Proposal: p}
	d.ClientInfo.StartDate = copyTime(p.ClientInfo.StartDate)
	d.ClientInfo.EndDate = copyTime(p.ClientInfo.EndDate)
	d.ClientInfo.DestinationAreas = append(domain.Destinations(nil), p.ClientInfo.DestinationAreas...)
	d.Flights = editableList(p.Flights)
	d.Inclusions = editableList(p.Inclusions)
	d.Exclusions = editableList(p.Exclusions)
	d.HotelInfo.Hotels = append([]domain.Hotel{}, p.HotelInfo.Hotels...)
	d.Activities = append([]domain.DayActivity{}, p.Activities...)
	return d
}

// editableList copies l; an empty list opens with one blank row like a new form.
func editableList(l []string) []string {
	if len(l) == 0 {
		return []string{""}
	}
	return append([]string(nil), l...)
}

// Apply runs c against d. Catalog picks are resolved through the catalog
// service; an unknown pick fails with ErrValidation.
func (s *ItineraryService) Apply(ctx context.Context, d *Draft, c Changes) error {
	if c.ClientInfo != nil {
		if err := d.setClientInfo(*c.ClientInfo); err != nil {
			return err
		}
	}
	if c.StartDate != nil {
		if err := d.SetStartDate(*c.StartDate); err != nil {
			return err
		}
	}
	if c.EndDate != nil {
		if err := d.SetEndDate(*c.EndDate); err != nil {
			return err
		}
	}

	for f, vals := range map[ListField][]string{Flights: c.Flights, Inclusions: c.Inclusions, Exclusions: c.Exclusions} {
		if vals != nil {
			if err := d.replaceList(f, vals); err != nil {
				return err
			}
		}
	}
	for _, e := range c.Entries {
		if err := d.applyEntry(e); err != nil {
			return err
		}
	}

	if err := d.removeHotels(c.RemoveHotels); err != nil {
		return err
	}
	if err := s.pickHotels(ctx, d, c.Hotels); err != nil {
		return err
	}
	for _, h := range c.CustomHotels {
		if _, err := d.AddCustomHotel(h.Name, h.Description); err != nil {
			return err
		}
	}

	if err := s.pickActivities(ctx, d, c.Activities); err != nil {
		return err
	}
	for _, e := range c.DayEdits {
		if err := d.EditDay(e.Day-1, e.Heading, e.Content); err != nil {
			return err
		}
	}

	if c.Visa != nil {
		d.Visa = *c.Visa
	}
	if c.TermsAndConditions != nil {
		d.TermsAndConditions = *c.TermsAndConditions
	}
	if c.TravelInsurance != nil {
		d.TravelInsurance = *c.TravelInsurance
	}
	return nil
}

// setClientInfo replaces the client details. Dates left out keep their
// current value; a date that moves regenerates the days.
func (d *Draft) setClientInfo(ci domain.ClientInfo) error {
	start, end := d.ClientInfo.StartDate, d.ClientInfo.EndDate
	if ci.StartDate != nil {
		start = ci.StartDate
	}
	if ci.EndDate != nil {
		end = ci.EndDate
	}
	moved := !sameTime(start, d.ClientInfo.StartDate) || !sameTime(end, d.ClientInfo.EndDate)
	if moved {
		if err := d.SetDates(start, end); err != nil {
			return err
		}
	}
	ci.StartDate, ci.EndDate = d.ClientInfo.StartDate, d.ClientInfo.EndDate
	d.ClientInfo = ci
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (d *Draft) replaceList(f ListField, vals []string) error {
	l, err := d.list(f)
	if err != nil {
		return err
	}
	*l = []string{""}
	for i, v := range vals {
		if i > 0 {
			if err := d.AddEntry(f); err != nil {
				return err
			}
		}
		if err := d.SetEntry(f, i, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Draft) applyEntry(e EntryEdit) error {
	switch e.Op {
	case EntryAdd:
		if err := d.AddEntry(e.List); err != nil {
			return err
		}
		l, _ := d.list(e.List)
		return d.SetEntry(e.List, len(*l)-1, e.Value)
	case EntrySet:
		return d.SetEntry(e.List, e.Index, e.Value)
	case EntryRemove:
		return d.RemoveEntry(e.List, e.Index)
	}
	return fmt.Errorf("%w: unknown list op %q", domain.ErrValidation, e.Op)
}

// removeHotels drops hotels by their index before the edit, highest first.
func (d *Draft) removeHotels(idx []int) error {
	idx = append([]int(nil), idx...)
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))
	for i, n := range idx {
		if i > 0 && n == idx[i-1] {
			continue
		}
		if err := d.RemoveHotel(n); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
	}
	return nil
}

func (s *ItineraryService) pickHotels(ctx context.Context, d *Draft, picks []HotelPick) error {
	if len(picks) == 0 {
		return nil
	}
	if s.catalog == nil {
		return fmt.Errorf("%w: hotel picks need the catalog", domain.ErrValidation)
	}
	cities := make([]string, 0, len(picks))
	for _, p := range picks {
		cities = append(cities, p.City)
	}
	byCity, err := s.catalog.HotelsByCity(ctx, cities)
	if err != nil {
		return err
	}
	for _, p := range picks {
		if _, err := d.SelectHotel(byCity, strings.TrimSpace(p.City), strings.TrimSpace(p.Key)); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
	}
	return nil
}

func (s *ItineraryService) pickActivities(ctx context.Context, d *Draft, picks []ActivityPick) error {
	if len(picks) == 0 {
		return nil
	}
	if s.catalog == nil {
		return fmt.Errorf("%w: activity picks need the catalog", domain.ErrValidation)
	}
	cities := d.ClientInfo.DestinationAreas.Names()
	for _, p := range picks {
		if p.City != "" {
			cities = append(cities, p.City)
		}
	}
	if len(cities) == 0 {
		return fmt.Errorf("%w: activity picks need a destination", domain.ErrValidation)
	}
	all, err := s.catalog.Activities(ctx, cities)
	if err != nil {
		return err
	}
	for _, p := range picks {
		a, ok := findActivity(all, strings.TrimSpace(p.City), strings.TrimSpace(p.Activity))
		if !ok {
			return fmt.Errorf("%w: activity %q: %w", domain.ErrValidation, p.Activity, domain.ErrNotFound)
		}
		if err := d.SelectActivity(p.Day-1, a); err != nil {
			return err
		}
	}
	return nil
}

func findActivity(all []domain.Activity, city, key string) (domain.Activity, bool) {
	for _, a := range all {
		if city != "" && !strings.EqualFold(a.City, city) {
			continue
		}
		if (a.ID != "" && a.ID == key) || a.Name == key {
			return a, true
		}
	}
	return domain.Activity{}, false
}
