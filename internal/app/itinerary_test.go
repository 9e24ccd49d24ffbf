package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/delonixservices/crm/internal/app"
	"github.com/delonixservices/crm/internal/domain"
)

func day(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

func TestDayCount(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata: %v", err)
	}
	ist := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		start, end time.Time
		want       int
	}{
		{day(1), day(1), 1},
		{day(1), day(5), 5},
		{day(1), day(1).Add(36 * time.Hour), 2},
		{day(1), day(30), 30},
		// spring-forward night has 23 hours
		{time.Date(2025, 3, 29, 0, 0, 0, 0, paris), time.Date(2025, 3, 31, 0, 0, 0, 0, paris), 3},
		{time.Date(2025, 10, 25, 0, 0, 0, 0, paris), time.Date(2025, 10, 27, 0, 0, 0, 0, paris), 3},
		{time.Date(2025, 6, 1, 0, 0, 0, 0, ist), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), 3},
	}
	for _, c := range cases {
		if got := app.DayCount(c.start, c.end); got != c.want {
			t.Errorf("DayCount(%v, %v) = %d, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestSetDates_PlaceholdersPerDay(t *testing.T) {
	for n := 1; n <= 10; n++ {
		d := app.NewDraft()
		if err := d.SetStartDate(day(1)); err != nil {
			t.Fatal(err)
		}
		if len(d.Activities) != 0 {
			t.Fatal("activities must wait for both dates")
		}
		if err := d.SetEndDate(day(n)); err != nil {
			t.Fatal(err)
		}
		if len(d.Activities) != n {
			t.Fatalf("n=%d: got %d days", n, len(d.Activities))
		}
		for i, a := range d.Activities {
			if a.Day != fmt.Sprintf("Day %d", i+1) || a.Heading != "" || a.Content != "" || a.Image != "" {
				t.Fatalf("n=%d: bad placeholder %d: %+v", n, i, a)
			}
		}
	}
}

func TestSetDates_DateChangeDiscardsEdits(t *testing.T) {
	d := app.NewDraft()
	_ = d.SetDates(ptr(day(1)), ptr(day(3)))
	if err := d.EditDay(1, "Museum", "Louvre visit"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetEndDate(day(4)); err != nil {
		t.Fatal(err)
	}
	if len(d.Activities) != 4 {
		t.Fatalf("expected 4 days, got %d", len(d.Activities))
	}
	if d.Activities[1].Heading != "" || d.Activities[1].Content != "" {
		t.Fatalf("day 2 must be reset, got %+v", d.Activities[1])
	}
}

func TestSetDates_EndBeforeStartRejected(t *testing.T) {
	d := app.NewDraft()
	_ = d.SetDates(ptr(day(5)), ptr(day(7)))
	_ = d.EditDay(0, "Keep", "me")

	err := d.SetEndDate(day(2))
	if !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if len(d.Activities) != 3 || d.Activities[0].Heading != "Keep" {
		t.Fatalf("activities must be untouched: %+v", d.Activities)
	}
	if !d.ClientInfo.EndDate.Equal(day(7)) {
		t.Fatalf("end date must be unchanged, got %v", d.ClientInfo.EndDate)
	}
}

func TestSelectActivity_OnlyTouchesOneDay(t *testing.T) {
	d := app.NewDraft()
	_ = d.SetDates(ptr(day(1)), ptr(day(3)))
	_ = d.EditDay(0, "Arrival", "Check in")
	before := append([]domain.DayActivity(nil), d.Activities...)

	a := domain.Activity{
		Name:               "Seine Cruise",
		Description:        "Evening boat ride",
		Image:              "https://img/seine.jpg",
		Price:              1500,
		Duration:           2.5,
		SelectedCategories: []string{"Leisure", "Water"},
	}
	if err := d.SelectActivity(1, a); err != nil {
		t.Fatal(err)
	}
	want := "Activity: Seine Cruise\nDescription: Evening boat ride\nPrice: ₹1500\nDuration: 2.5 hours\nCategories: Leisure, Water"
	got := d.Activities[1]
	if got.Heading != "Seine Cruise" || got.Image != a.Image || got.Content != want {
		t.Fatalf("unexpected day: %+v", got)
	}
	for _, i := range []int{0, 2} {
		if d.Activities[i] != before[i] {
			t.Fatalf("day %d changed: %+v", i, d.Activities[i])
		}
	}
	if err := d.SelectActivity(3, a); !errors.Is(err, domain.ErrInvalidDay) {
		t.Fatalf("expected ErrInvalidDay, got %v", err)
	}
}

func TestSelectHotel_Appends(t *testing.T) {
	hotelsByCity := map[string][]domain.Hotel{
		"Paris": {{ID: "h1", Name: "Hotel X", Price: 100}},
	}
	d := app.NewDraft()
	d.AddHotel(domain.Hotel{ID: "h0", Name: "Earlier Pick"})

	h, err := d.SelectHotel(hotelsByCity, "Paris", "Hotel X")
	if err != nil {
		t.Fatal(err)
	}
	if h.ID != "h1" {
		t.Fatalf("unexpected hotel %+v", h)
	}
	hs := d.HotelInfo.Hotels
	if len(hs) != 2 || hs[0].Name != "Earlier Pick" || hs[1].Name != "Hotel X" || hs[1].Price != 100 {
		t.Fatalf("unexpected hotels %+v", hs)
	}
	if _, err := d.SelectHotel(hotelsByCity, "Paris", "h1"); err != nil {
		t.Fatalf("select by id: %v", err)
	}
	if _, err := d.SelectHotel(hotelsByCity, "Rome", "Hotel X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCustomHotelAndRemove(t *testing.T) {
	d := app.NewDraft()
	h, err := d.AddCustomHotel("  Villa Rosa ", "Family run")
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsCustom || !strings.HasPrefix(h.ID, "custom-") || h.Name != "Villa Rosa" {
		t.Fatalf("unexpected custom hotel %+v", h)
	}
	if _, err := d.AddCustomHotel(" ", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := d.RemoveHotel(0); err != nil || len(d.HotelInfo.Hotels) != 0 {
		t.Fatalf("remove: %v %+v", err, d.HotelInfo.Hotels)
	}
}

func TestEntries(t *testing.T) {
	d := app.NewDraft()
	if len(d.Flights) != 1 || d.Flights[0] != "" {
		t.Fatalf("new draft starts with one empty flight: %v", d.Flights)
	}
	_ = d.SetEntry(app.Flights, 0, "AI 101")
	_ = d.AddEntry(app.Flights)
	_ = d.SetEntry(app.Flights, 1, "AF 22")
	if err := d.RemoveEntry(app.Flights, 0); err != nil {
		t.Fatal(err)
	}
	if len(d.Flights) != 1 || d.Flights[0] != "AF 22" {
		t.Fatalf("unexpected flights %v", d.Flights)
	}
	if err := d.SetEntry(app.Inclusions, 5, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := d.AddEntry("visa"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func filledDraft() *app.Draft {
	d := app.NewDraft()
	d.ClientInfo = domain.ClientInfo{
		ProposalName:     "Summer",
		Name:             "Asha",
		Phone:            "999",
		DestinationAreas: domain.Destinations{{CityName: "Paris"}, {ID: "c2", CityName: "Rome"}},
	}
	ist := time.FixedZone("IST", 5*3600+1800)
	_ = d.SetDates(ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, ist)), ptr(time.Date(2025, 6, 2, 0, 0, 0, 0, ist)))
	_ = d.SetEntry(app.Flights, 0, "AI 101")
	_ = d.AddEntry(app.Flights)
	d.AddHotel(domain.Hotel{Name: "Hotel X", SelectedAmenities: []string{"Wifi"}})
	return d
}

func TestBuildSubmission(t *testing.T) {
	d := filledDraft()
	p, err := d.BuildSubmission()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Flights) != 1 || len(p.Inclusions) != 0 || len(p.Exclusions) != 0 {
		t.Fatalf("empty entries must be dropped: %+v", p)
	}
	if got := p.ClientInfo.DestinationAreas; len(got) != 2 || got[1].ID != "" || got[1].CityName != "Rome" {
		t.Fatalf("destinations must be names only: %+v", got)
	}
	if p.ClientInfo.StartDate.Location() != time.UTC || p.ClientInfo.StartDate.Hour() != 18 {
		t.Fatalf("dates must be UTC: %v", p.ClientInfo.StartDate)
	}
	if len(p.Activities) != 2 || p.Activities[1].Day != "Day 2" {
		t.Fatalf("unexpected activities %+v", p.Activities)
	}

	p.HotelInfo.Hotels[0].SelectedAmenities[0] = "Pool"
	if d.HotelInfo.Hotels[0].SelectedAmenities[0] != "Wifi" || len(d.Flights) != 2 {
		t.Fatal("submission must not alias the draft")
	}
}

func TestBuildSubmission_RequiresClientFields(t *testing.T) {
	d := filledDraft()
	d.ClientInfo.Phone = ""
	_, err := d.BuildSubmission()
	if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), "Phone") {
		t.Fatalf("expected validation error on Phone, got %v", err)
	}
}

func TestItineraryService_Submit(t *testing.T) {
	store := &fakeProposals{}
	id, err := app.NewItineraryService(store, nil).Submit(context.Background(), filledDraft())
	if err != nil || id != "new-id" {
		t.Fatalf("submit: %q %v", id, err)
	}
	if len(store.created) != 1 || store.created[0].ClientInfo.Name != "Asha" {
		t.Fatalf("unexpected payload %+v", store.created)
	}
}

func catalogFixture() *app.CatalogService {
	src := &fakeCatalog{
		hotels: map[string][]map[string]any{
			"Paris": {{"_id": "h1", "name": "Hotel X", "amenities": []any{"Wifi"}}, {"_id": "h2", "name": "Hotel Y"}},
		},
		activities: map[string][]map[string]any{
			"Paris": {{"_id": "a1", "name": "Louvre", "price": float64(2000), "duration": "3"}},
			"Rome":  {{"_id": "a2", "name": "Colosseum"}},
		},
	}
	return app.NewCatalogService(src, nil, 0, 2)
}

func TestItineraryService_CreateResolvesCatalogPicks(t *testing.T) {
	store := &fakeProposals{}
	s := app.NewItineraryService(store, catalogFixture())
	start, end := day(1), day(3)
	id, err := s.Create(context.Background(), app.Changes{
		ClientInfo: &domain.ClientInfo{
			ProposalName:     "Summer",
			Name:             "Asha",
			Phone:            "999",
			DestinationAreas: domain.Destinations{{CityName: "Paris"}, {CityName: "Rome"}},
			StartDate:        &start,
			EndDate:          &end,
		},
		Flights:      []string{"AI 101", "AI 102"},
		Entries:      []app.EntryEdit{{List: app.Inclusions, Op: app.EntryAdd, Value: "Breakfast"}},
		Hotels:       []app.HotelPick{{City: "Paris", Key: "h2"}, {City: "Paris", Key: "Hotel X"}},
		CustomHotels: []app.CustomHotel{{Name: "Villa Rosa", Description: "Family run"}},
		Activities:   []app.ActivityPick{{Day: 1, Activity: "a1"}, {Day: 3, City: "Rome", Activity: "Colosseum"}},
		DayEdits:     []app.DayEdit{{Day: 2, Heading: "Free day", Content: "Explore"}},
	})
	if err != nil || id != "new-id" {
		t.Fatalf("create: %q %v", id, err)
	}
	p := store.created[0]
	if len(p.Activities) != 3 || p.Activities[0].Heading != "Louvre" || p.Activities[2].Heading != "Colosseum" {
		t.Fatalf("unexpected days %+v", p.Activities)
	}
	if p.Activities[1].Heading != "Free day" || !strings.Contains(p.Activities[0].Content, "Price: ₹2000") {
		t.Fatalf("unexpected day content %+v", p.Activities)
	}
	hs := p.HotelInfo.Hotels
	if len(hs) != 3 || hs[0].Name != "Hotel Y" || hs[1].ID != "h1" || !hs[2].IsCustom {
		t.Fatalf("unexpected hotels %+v", hs)
	}
	if strings.Join(p.Flights, "|") != "AI 101|AI 102" || strings.Join(p.Inclusions, "|") != "Breakfast" {
		t.Fatalf("unexpected lists %v %v", p.Flights, p.Inclusions)
	}
}

func TestItineraryService_CreateRejectsUnknownPick(t *testing.T) {
	s := app.NewItineraryService(&fakeProposals{}, catalogFixture())
	base := func() app.Changes {
		return app.Changes{ClientInfo: &domain.ClientInfo{
			ProposalName:     "Summer",
			Name:             "Asha",
			Phone:            "999",
			DestinationAreas: domain.Destinations{{CityName: "Paris"}},
			StartDate:        ptr(day(1)),
			EndDate:          ptr(day(2)),
		}}
	}
	c := base()
	c.Hotels = []app.HotelPick{{City: "Paris", Key: "nope"}}
	if _, err := s.Create(context.Background(), c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown hotel: expected ErrValidation, got %v", err)
	}
	c = base()
	c.Activities = []app.ActivityPick{{Day: 1, Activity: "nope"}}
	if _, err := s.Create(context.Background(), c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown activity: expected ErrValidation, got %v", err)
	}
	c = base()
	c.Activities = []app.ActivityPick{{Day: 5, Activity: "a1"}}
	if _, err := s.Create(context.Background(), c); !errors.Is(err, domain.ErrInvalidDay) {
		t.Fatalf("day out of range: expected ErrInvalidDay, got %v", err)
	}
	c = base()
	c.Hotels = []app.HotelPick{{City: "Paris", Key: "h1"}}
	if _, err := app.NewItineraryService(&fakeProposals{}, nil).Create(context.Background(), c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("picks without catalog: expected ErrValidation, got %v", err)
	}
}

func storedProposal() domain.Proposal {
	start, end := day(1), day(2)
	return domain.Proposal{
		ID: "p1",
		ClientInfo: domain.ClientInfo{
			ProposalName:     "Summer",
			Name:             "Asha",
			Phone:            "999",
			DestinationAreas: domain.Destinations{{CityName: "Paris"}},
			StartDate:        &start,
			EndDate:          &end,
		},
		Flights:    []string{"AI 101"},
		HotelInfo:  domain.HotelInfo{Hotels: []domain.Hotel{{Name: "A"}, {Name: "B"}, {Name: "C"}}},
		Activities: []domain.DayActivity{{Day: "Day 1", Heading: "Louvre"}, {Day: "Day 2", Heading: "Seine"}},
	}
}

func TestItineraryService_UpdateKeepsDaysWhenDatesUnchanged(t *testing.T) {
	store := &fakeProposals{byID: map[string]domain.Proposal{"p1": storedProposal()}}
	s := app.NewItineraryService(store, catalogFixture())

	ci := storedProposal().ClientInfo
	ci.Name = "Asha Rao"
	ci.StartDate, ci.EndDate = nil, nil
	out, err := s.Update(context.Background(), "p1", app.Changes{
		ClientInfo:   &ci,
		RemoveHotels: []int{0, 2},
		Entries:      []app.EntryEdit{{List: app.Flights, Op: app.EntrySet, Index: 0, Value: "AI 111"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.ID != "p1" || out.ClientInfo.Name != "Asha Rao" || out.ClientInfo.StartDate == nil {
		t.Fatalf("unexpected proposal %+v", out.ClientInfo)
	}
	if len(out.Activities) != 2 || out.Activities[0].Heading != "Louvre" {
		t.Fatalf("days must survive an edit without date changes: %+v", out.Activities)
	}
	if len(out.HotelInfo.Hotels) != 1 || out.HotelInfo.Hotels[0].Name != "B" {
		t.Fatalf("unexpected hotels %+v", out.HotelInfo.Hotels)
	}
	if out.Flights[0] != "AI 111" {
		t.Fatalf("unexpected flights %v", out.Flights)
	}
}

func TestItineraryService_UpdateDateChangeRegeneratesDays(t *testing.T) {
	store := &fakeProposals{byID: map[string]domain.Proposal{"p1": storedProposal()}}
	s := app.NewItineraryService(store, catalogFixture())
	out, err := s.Update(context.Background(), "p1", app.Changes{EndDate: ptr(day(4))})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(out.Activities) != 4 || out.Activities[0].Heading != "" || out.Activities[3].Day != "Day 4" {
		t.Fatalf("expected 4 fresh days, got %+v", out.Activities)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected one write, got %d", len(store.updated))
	}

	if _, err := s.Update(context.Background(), "p1", app.Changes{StartDate: ptr(day(9))}); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if _, err := s.Update(context.Background(), "missing", app.Changes{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(store.updated) != 1 {
		t.Fatal("failed edits must not be written")
	}
}
