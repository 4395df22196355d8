package domain

import (
	"strconv"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSessionTitle is used until the first user message sets a real title
const DefaultSessionTitle = "New Chat"

// Message represents one turn in a conversation
type Message struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"` // inline-encoded attachment
	CreatedAt time.Time `json:"created_at"`

	// Sources is three-state: nil means "not yet known", an empty slice
	// means "known, zero matches". UI branches on the distinction.
	Sources    *[]SourceNode    `json:"sources,omitempty"`
	FocusCoord *FocusCoordinate `json:"focus_coord,omitempty"`
	Helpful    *bool            `json:"helpful,omitempty"`
}

// Source node types carried in metadata under the "type" key.
// An absent type means video frame.
const (
	SourceTypeVideoFrame = "video-frame"
	SourceTypePDF        = "pdf_document"
	SourceTypeJira       = "jira_ticket"
)

// SourceNode is one retrieved evidence unit attached to an assistant message
type SourceNode struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Type returns the source type, defaulting to video frame when absent
func (n SourceNode) Type() string {
	if t := n.metaString("type"); t != "" {
		return t
	}
	return SourceTypeVideoFrame
}

// PageLabel returns the stringified page_label metadata value
func (n SourceNode) PageLabel() string { return n.metaString("page_label") }

// TicketID returns the explicit ticket_id metadata value, if any
func (n SourceNode) TicketID() string { return n.metaString("ticket_id") }

// System returns the originating ticket system, if any
func (n SourceNode) System() string { return n.metaString("system") }

// Origin returns the origin URL of the source, if any
func (n SourceNode) Origin() string { return n.metaString("source") }

// FrameIndex returns the video frame index and whether one is present
func (n SourceNode) FrameIndex() (int, bool) {
	v, ok := n.Metadata["frame_index"]
	if !ok {
		return 0, false
	}
	switch idx := v.(type) {
	case float64:
		return int(idx), true
	case int:
		return idx, true
	case string:
		i, err := strconv.Atoi(idx)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// metaString stringifies a metadata value; numbers from JSON decode as float64
func (n SourceNode) metaString(key string) string {
	v, ok := n.Metadata[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	}
	return ""
}

// FocusCoordinate is a normalized bounding box over a reference image.
// Percentages are in [0,100] relative to the image dimensions.
type FocusCoordinate struct {
	XPct  float64 `json:"x_pct"`
	YPct  float64 `json:"y_pct"`
	WPct  float64 `json:"w_pct"`
	HPct  float64 `json:"h_pct"`
	Label string  `json:"label"`
}

// ChatSession is a named, ordered, persisted conversation
type ChatSession struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
}

// TurnRequest is the request to submit a chat turn
type TurnRequest struct {
	Message   string `json:"message"`
	Image     string `json:"image,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// Stats represents system statistics
type Stats struct {
	TotalSessions int `json:"total_sessions"`
	TotalMessages int `json:"total_messages"`
	TotalQueries  int `json:"total_queries"`
}
