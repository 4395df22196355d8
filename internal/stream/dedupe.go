package stream

import (
	"regexp"
	"strconv"

	"golivebuddy/internal/domain"
)

// ticketIDPattern matches Jira-style ticket identifiers such as SAP-1003
var ticketIDPattern = regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+`)

// DeduplicateSources collapses duplicate retrieved sources, keeping the
// first occurrence of each identity and preserving relative order.
// PDF sources are keyed by page label, Jira sources by ticket identifier,
// video frames by frame index. Frames without a usable index are never
// deduplicated against each other.
func DeduplicateSources(nodes []domain.SourceNode) []domain.SourceNode {
	seen := make(map[string]bool, len(nodes))
	out := make([]domain.SourceNode, 0, len(nodes))

	for _, n := range nodes {
		var key string
		switch n.Type() {
		case domain.SourceTypePDF:
			key = "pdf:" + n.PageLabel()
		case domain.SourceTypeJira:
			key = "jira:" + jiraKey(n)
		default:
			idx, ok := n.FrameIndex()
			if !ok || idx < 0 {
				out = append(out, n)
				continue
			}
			key = "frame:" + strconv.Itoa(idx)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// jiraKey resolves a ticket identity: explicit metadata, then a ticket-ID
// pattern in the excerpt, then the leading excerpt text as a last resort.
func jiraKey(n domain.SourceNode) string {
	if id := n.TicketID(); id != "" {
		return id
	}
	if id := ticketIDPattern.FindString(n.Text); id != "" {
		return id
	}
	runes := []rune(n.Text)
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}
