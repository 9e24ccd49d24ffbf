package domain

import "time"

// DocumentRecord is one generated proposal PDF.
type DocumentRecord struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposalId"`
	Filename   string    `json:"filename"`
	SHA256     string    `json:"sha256"`
	SizeBytes  int       `json:"sizeBytes"`
	Pages      int       `json:"pages"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	DispatchSent   = "sent"
	DispatchFailed = "failed"
)

// DispatchRecord is one attempt to e-mail a proposal.
type DispatchRecord struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposalId"`
	Recipient  string    `json:"recipient"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type DocumentsPage struct {
	Documents  []DocumentRecord `json:"documents"`
	Dispatches []DispatchRecord `json:"dispatches"`
}
