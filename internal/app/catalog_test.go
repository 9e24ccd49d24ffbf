package app_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/delonixservices/crm/internal/app"
)

func TestSearchCities_BlankQuerySkipsBackend(t *testing.T) {
	src := &fakeCatalog{}
	s := app.NewCatalogService(src, &fakeCache{}, time.Minute, 2)
	out, err := s.SearchCities(context.Background(), "   ")
	if err != nil || len(out) != 0 {
		t.Fatalf("unexpected %v %v", out, err)
	}
	if src.calls != 0 {
		t.Fatal("blank query must not reach the backend")
	}
}

func TestSearchCities_CacheMissThenHit(t *testing.T) {
	src := &fakeCatalog{cities: []map[string]any{
		{"_id": "c1", "cityName": "Paris", "country": "France"},
		{"id": "c2", "name": "Rome"},
		{"country": "nameless"},
	}}
	cache := &fakeCache{}
	s := app.NewCatalogService(src, cache, time.Minute, 2)

	out, err := s.SearchCities(context.Background(), "Pa")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "c1" || out[1].CityName != "Rome" {
		t.Fatalf("unexpected cities %+v", out)
	}

	src.cities = nil
	out2, _ := s.SearchCities(context.Background(), "pa")
	if len(out2) != 2 || atomic.LoadInt32(&src.calls) != 1 {
		t.Fatalf("expected cached result, calls=%d out=%+v", src.calls, out2)
	}
}

func TestSearchCities_ConcurrentCallersShareResult(t *testing.T) {
	src := &fakeCatalog{cities: []map[string]any{{"cityName": "Goa"}}}
	s := app.NewCatalogService(src, nil, 0, 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.SearchCities(context.Background(), "Goa")
			if err != nil || len(out) != 1 {
				t.Errorf("unexpected %v %v", out, err)
			}
		}()
	}
	wg.Wait()
}

// waitCalls polls until the fake has seen n calls.
func waitCalls(t *testing.T, calls *int32, n int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(calls) < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d upstream calls, got %d", n, atomic.LoadInt32(calls))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSearchCities_CanceledLeaderDoesNotFailWaiters(t *testing.T) {
	src := &fakeCatalog{cities: []map[string]any{{"cityName": "Goa"}}, gate: make(chan struct{})}
	s := app.NewCatalogService(src, nil, 0, 2)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := s.SearchCities(leaderCtx, "Goa")
		leader <- err
	}()
	waitCalls(t, &src.calls, 1)

	waiter := make(chan error, 1)
	go func() {
		out, err := s.SearchCities(context.Background(), "Goa")
		if err == nil && len(out) != 1 {
			err = fmt.Errorf("unexpected cities %+v", out)
		}
		waiter <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(src.gate)

	if err := <-waiter; err != nil {
		t.Fatalf("waiter failed after leader canceled: %v", err)
	}
	<-leader
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Fatalf("expected one shared upstream call, got %d", n)
	}
}

func TestHotelsByCity_JoinsAllCities(t *testing.T) {
	src := &fakeCatalog{hotels: map[string][]map[string]any{
		"Paris": {{"_id": "h1", "name": "Hotel X", "price": float64(100)}},
		"Rome":  {{"id": "h2", "name": "Hotel Y", "price": "2,500", "starRating": "4", "amenities": []any{"Pool", map[string]any{"name": "Spa"}}}},
	}}
	s := app.NewCatalogService(src, &fakeCache{}, time.Minute, 2)

	out, err := s.HotelsByCity(context.Background(), []string{"Paris", "Rome", "Paris", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 cities, got %v", out)
	}
	x := out["Paris"][0]
	if x.ID != "h1" || x.Name != "Hotel X" || x.Price != 100 || x.City != "Paris" {
		t.Fatalf("unexpected Paris hotel %+v", x)
	}
	y := out["Rome"][0]
	if y.ID != "h2" || y.Price != 2500 || y.StarRating != 4 || strings.Join(y.SelectedAmenities, ",") != "Pool,Spa" {
		t.Fatalf("unexpected Rome hotel %+v", y)
	}
}

func TestHotelsByCity_OneFailureFailsAll(t *testing.T) {
	src := &fakeCatalog{failCity: "Rome", hotels: map[string][]map[string]any{"Paris": {{"name": "X"}}}}
	s := app.NewCatalogService(src, nil, 0, 4)
	_, err := s.HotelsByCity(context.Background(), []string{"Paris", "Rome"})
	if err == nil || !strings.Contains(err.Error(), "failed to fetch hotels for Rome") {
		t.Fatalf("expected Rome failure, got %v", err)
	}
}

func TestActivities_FlattenedInCityOrder(t *testing.T) {
	src := &fakeCatalog{activities: map[string][]map[string]any{
		"Paris": {{"name": "Louvre", "duration": "3"}, {"name": "Seine"}},
		"Rome":  {{"name": "Colosseum", "selectedCategories": []any{"History"}, "slots": []any{map[string]any{"startTime": "09:00", "endTime": "11:00"}}}},
	}}
	s := app.NewCatalogService(src, &fakeCache{}, time.Minute, 1)
	out, err := s.Activities(context.Background(), []string{"Rome", "Paris"})
	if err != nil {
		t.Fatal(err)
	}
	names := []string{}
	for _, a := range out {
		names = append(names, a.Name)
	}
	if strings.Join(names, ",") != "Colosseum,Louvre,Seine" {
		t.Fatalf("unexpected order %v", names)
	}
	if out[0].Slots[0].EndTime != "11:00" || out[0].City != "Rome" || out[1].Duration != 3 {
		t.Fatalf("unexpected mapping %+v", out)
	}
}

func TestDebouncer_OnlyLastFires(t *testing.T) {
	d := app.NewDebouncer(20 * time.Millisecond)
	var fired int32
	var last atomic.Value
	for i := 0; i < 5; i++ {
		q := string(rune('a' + i))
		d.Trigger(func() {
			atomic.AddInt32(&fired, 1)
			last.Store(q)
		})
	}
	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 || last.Load() != "e" {
		t.Fatalf("fired=%d last=%v", fired, last.Load())
	}

	d.Trigger(func() { atomic.AddInt32(&fired, 1) })
	d.Stop()
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatal("stopped call must not fire")
	}
}

func TestDebouncer_StopWaitsForRunningCall(t *testing.T) {
	d := app.NewDebouncer(time.Millisecond)
	started := make(chan struct{})
	var done int32
	d.Trigger(func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
	})
	<-started
	d.Stop()
	if atomic.LoadInt32(&done) != 1 {
		t.Fatal("Stop returned before the running call finished")
	}

	// usable again after Stop
	fired := make(chan struct{})
	d.Trigger(func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("trigger after Stop never fired")
	}
	d.Stop()
}
