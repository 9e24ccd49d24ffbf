package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Proposal struct {
	ID                 string             `json:"_id,omitempty"`
	ClientInfo         ClientInfo         `json:"clientInfo"`
	Flights            []string           `json:"flights"`
	HotelInfo          HotelInfo          `json:"hotelInfo"`
	Activities         []DayActivity      `json:"activities"`
	Inclusions         []string           `json:"inclusions"`
	Exclusions         []string           `json:"exclusions"`
	Visa               Visa               `json:"visa"`
	TermsAndConditions TermsAndConditions `json:"termsAndConditions"`
	TravelInsurance    TravelInsurance    `json:"travelInsurance"`
	CreatedAt          *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time         `json:"updatedAt,omitempty"`
}

type ClientInfo struct {
	ProposalName     string       `json:"proposalName" validate:"required"`
	Name             string       `json:"name" validate:"required"`
	Phone            string       `json:"phone" validate:"required"`
	StartCity        string       `json:"startCity"`
	DestinationAreas Destinations `json:"destinationAreas"`
	StartDate        *time.Time   `json:"startDate"`
	EndDate          *time.Time   `json:"endDate"`
}

type HotelInfo struct {
	Hotels []Hotel `json:"hotels"`
}

// DayActivity is one calendar day of the itinerary. Content is free-form and
// may embed a "Price:" line that is hidden when rendered.
type DayActivity struct {
	Day     string `json:"day"`
	Heading string `json:"heading"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

type Visa struct {
	Type  string `json:"type"`
	Notes string `json:"notes"`
}

type TermsAndConditions struct {
	Include string `json:"include"` // yes|no
	Text    string `json:"text"`
}

type TravelInsurance struct {
	Include string `json:"include"` // yes|no
	Text    string `json:"text,omitempty"`
}

func (t TermsAndConditions) Included() bool { return strings.EqualFold(t.Include, "yes") }
func (t TravelInsurance) Included() bool    { return strings.EqualFold(t.Include, "yes") }

// Destination is a selected trip destination. Payloads carry either a bare city
// name or a {id, cityName} object; both decode into this one shape.
type Destination struct {
	ID       string
	CityName string
}

func (d *Destination) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = Destination{}
		return nil
	}
	if b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*d = Destination{CityName: name}
		return nil
	}
	var obj struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		CityName string `json:"cityName"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	id := obj.ID
	if id == "" {
		id = obj.MongoID
	}
	*d = Destination{ID: id, CityName: obj.CityName}
	return nil
}

// MarshalJSON emits the city name only; that is what the backend stores.
func (d Destination) MarshalJSON() ([]byte, error) { return json.Marshal(d.CityName) }

type Destinations []Destination

// UnmarshalJSON also accepts a single string or object where older proposals
// stored one destination instead of a list.
func (ds *Destinations) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*ds = nil
		return nil
	}
	if b[0] != '[' {
		var one Destination
		if err := one.UnmarshalJSON(b); err != nil {
			return err
		}
		*ds = Destinations{one}
		return nil
	}
	var many []Destination
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*ds = many
	return nil
}

func (ds Destinations) Names() []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		if d.CityName != "" {
			out = append(out, d.CityName)
		}
	}
	return out
}

// String joins the names with a bare comma, the literal form used in document
// titles and file names.
func (ds Destinations) String() string { return strings.Join(ds.Names(), ",") }
