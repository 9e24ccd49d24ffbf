package render

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/delonixservices/crm/internal/domain"
)

// FlightQuery is the stock photo search shown above the flights.
const FlightQuery = "airport terminal airplane"

const photoWorkers = 4

// Photo is a destination picture with the city it shows.
type Photo struct {
	City string
	URL  string
}

// Photos are the stock pictures of one document.
type Photos struct {
	Destinations []Photo
	Flight       string
}

// CollectPhotos searches one photo per destination and, when the proposal
// lists flights, one flight photo. Lookups run concurrently. A failed or
// empty lookup is left out; the rest keep destination order.
func CollectPhotos(ctx context.Context, search domain.PhotoSearch, p domain.Proposal) Photos {
	if search == nil {
		return Photos{}
	}
	cities := p.ClientInfo.DestinationAreas.Names()
	urls := make([]string, len(cities))
	var flight string

	var g errgroup.Group
	g.SetLimit(photoWorkers)
	for i, city := range cities {
		i, city := i, city // per-iteration copies (go1.21 loop semantics)
		g.Go(func() error {
			urls[i] = lookup(ctx, search, p.ID, city)
			return nil
		})
	}
	if len(nonBlank(p.Flights)) > 0 {
		g.Go(func() error {
			flight = lookup(ctx, search, p.ID, FlightQuery)
			return nil
		})
	}
	_ = g.Wait()

	out := Photos{Flight: flight}
	for i, u := range urls {
		if u != "" {
			out.Destinations = append(out.Destinations, Photo{City: cities[i], URL: u})
		}
	}
	return out
}

func lookup(ctx context.Context, search domain.PhotoSearch, proposalID, query string) string {
	u, err := search.SearchPhoto(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("proposal", proposalID).Str("query", query).Msg("photo lookup failed")
		return ""
	}
	return u
}
