package domain

import "time"

type Lead struct {
	ID                 string          `json:"_id,omitempty"`
	Name               string          `json:"name" validate:"required"`
	Contact            string          `json:"contact" validate:"required"`
	Email              string          `json:"email,omitempty" validate:"omitempty,email"`
	DateOfTravel       string          `json:"dateOfTravel,omitempty"`
	NumberOfDays       int             `json:"numberOfDays,omitempty"`
	Destination        string          `json:"destination,omitempty"`
	DepartureCity      string          `json:"departureCity,omitempty"`
	NumberOfClients    NumberOfClients `json:"numberOfClients"`
	LeadStatus         string          `json:"leadStatus,omitempty"`
	VerificationStatus string          `json:"verificationStatus,omitempty"`
	Assignee           string          `json:"assignee,omitempty"`
	NeedOfFlight       string          `json:"needOfFlight,omitempty"`
	Budget             string          `json:"budget,omitempty"`
	LeadSource         string          `json:"leadSource,omitempty"`
	NumberOfPacks      string          `json:"numberofPacks,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	DateOfCreation     string          `json:"dateofCreation,omitempty"`
	Timestamp          string          `json:"timestamp,omitempty"`
	LastEdited         *LastEdited     `json:"lastEdited,omitempty"`
	EditHistory        []EditChange    `json:"editHistory,omitempty"`
}

type NumberOfClients struct {
	Rooms        int      `json:"rooms"`
	Adults       int      `json:"adults"`
	Children     int      `json:"children"`
	ChildrenAges []string `json:"childrenAges"`
}

// EditChange is one entry of a lead's edit history. History is append-only.
type EditChange struct {
	Field     string    `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	Timestamp time.Time `json:"timestamp"`
}

type LastEdited struct {
	Timestamp time.Time    `json:"timestamp"`
	Changes   []EditChange `json:"changes"`
}

type LeadMessage struct {
	ID        string     `json:"_id,omitempty"`
	LeadID    string     `json:"leadId,omitempty"`
	Sender    string     `json:"sender,omitempty"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}
