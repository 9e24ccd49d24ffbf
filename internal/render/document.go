// Package render turns a stored proposal into the document shown to staff and
// printed into the PDF. Both outputs walk the same sections in the same order.
package render

import (
	"math"
	"strconv"
	"time"

	"github.com/delonixservices/crm/internal/domain"
)

// Section ids shared by the HTML view and the PDF layout.
const (
	SectionRoot       = "proposal-content"
	SectionClient     = "client"
	SectionDates      = "dates"
	SectionFlights    = "flights"
	SectionHotels     = "hotels"
	SectionActivities = "activities"
	SectionInclusions = "inclusions"
	SectionExclusions = "exclusions"
	SectionVisa       = "visa"
	SectionTerms      = "terms"
	SectionInsurance  = "insurance"
)

const (
	InsuranceText = "Travel Insurance (covering Medical, Baggage Loss, Flight Cancellations, or Delays) - Only for Age Below 60 Yrs"
	NotIncluded   = "Not Included"
	DateLayout    = "02 Jan 2006"
)

type Field struct {
	Label string
	Value string
}

type HotelCard struct {
	Name        string
	Description string
	Image       string
	Stars       int
	RoomType    string
	MealPlan    string
	Amenities   []string
}

type Day struct {
	Label   string
	Heading string
	Image   string
	Content Content
}

type Document struct {
	ProposalID string
	Title      string
	// one photo per destination; the first heads the document
	Gallery     []Photo
	FlightImage string
	Client      []Field
	StartDate   string
	EndDate     string
	TotalDays   int
	Flights     []string
	Hotels      []HotelCard
	Days        []Day
	Inclusions  []string
	Exclusions  []string
	VisaType    string
	VisaNotes   string
	Terms       string
	Insurance   []string
}

// Title is the cover heading of a proposal.
func Title(ci domain.ClientInfo) string {
	return ci.Name + "'s Visit to " + ci.DestinationAreas.String()
}

// TotalDays counts started days between the two dates in either order, plus one.
func TotalDays(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours()/24)) + 1
}

func Build(p domain.Proposal, photos Photos) Document {
	ci := p.ClientInfo
	doc := Document{
		ProposalID:  p.ID,
		Title:       Title(ci),
		Gallery:     photos.Destinations,
		FlightImage: photos.Flight,
		Client: []Field{
			{"Name", ci.Name},
			{"Proposal Name", ci.ProposalName},
			{"Contact", ci.Phone},
			{"Start City", ci.StartCity},
			{"Destination", ci.DestinationAreas.String()},
		},
		Flights:    nonBlank(p.Flights),
		Inclusions: nonBlank(p.Inclusions),
		Exclusions: nonBlank(p.Exclusions),
		VisaType:   p.Visa.Type,
		VisaNotes:  p.Visa.Notes,
	}
	if ci.StartDate != nil {
		doc.StartDate = ci.StartDate.Format(DateLayout)
	}
	if ci.EndDate != nil {
		doc.EndDate = ci.EndDate.Format(DateLayout)
	}
	if ci.StartDate != nil && ci.EndDate != nil {
		doc.TotalDays = TotalDays(*ci.StartDate, *ci.EndDate)
	}
	for _, h := range p.HotelInfo.Hotels {
		doc.Hotels = append(doc.Hotels, HotelCard{
			Name:        h.Name,
			Description: h.Description,
			Image:       h.Image,
			Stars:       h.StarRating,
			RoomType:    h.PropertyType,
			MealPlan:    h.MealPlan,
			Amenities:   h.SelectedAmenities,
		})
	}
	for i, a := range p.Activities {
		label := a.Day
		if label == "" {
			label = "Day " + strconv.Itoa(i+1)
		}
		doc.Days = append(doc.Days, Day{
			Label:   label,
			Heading: a.Heading,
			Image:   a.Image,
			Content: DescribeContent(a.Content),
		})
	}
	if p.TermsAndConditions.Included() {
		doc.Terms = p.TermsAndConditions.Text
	}
	if p.TravelInsurance.Included() {
		doc.Insurance = []string{InsuranceText}
		if p.TravelInsurance.Text != "" {
			doc.Insurance = append(doc.Insurance, p.TravelInsurance.Text)
		}
	} else {
		doc.Insurance = []string{NotIncluded}
	}
	return doc
}

// Sections lists the ids of the sections this document shows, in order.
func (d Document) Sections() []string {
	out := []string{SectionClient, SectionDates}
	if len(d.Flights) > 0 {
		out = append(out, SectionFlights)
	}
	if len(d.Hotels) > 0 {
		out = append(out, SectionHotels)
	}
	if len(d.Days) > 0 {
		out = append(out, SectionActivities)
	}
	if len(d.Inclusions) > 0 {
		out = append(out, SectionInclusions)
	}
	if len(d.Exclusions) > 0 {
		out = append(out, SectionExclusions)
	}
	if d.VisaType != "" || d.VisaNotes != "" {
		out = append(out, SectionVisa)
	}
	if d.Terms != "" {
		out = append(out, SectionTerms)
	}
	return append(out, SectionInsurance)
}

// Has reports whether the section with the given id is shown.
func (d Document) Has(id string) bool {
	for _, s := range d.Sections() {
		if s == id {
			return true
		}
	}
	return false
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
