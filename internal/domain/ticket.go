package domain

// Ticket priorities
const (
	TicketPriorityLow    = "Low"
	TicketPriorityMedium = "Medium"
	TicketPriorityHigh   = "High"
)

// TicketDraft holds the data needed to draft a support ticket from a
// conversation turn. Submission is handled by the backend.
type TicketDraft struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	System      string `json:"system,omitempty"`
	Namespace   string `json:"namespace"`
}

// IngestRequest is forwarded to the backend ingestion pipeline
type IngestRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
	Namespace string `json:"namespace" binding:"required"`
	Mode      string `json:"mode,omitempty"`
}
