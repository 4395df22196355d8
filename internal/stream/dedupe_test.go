package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golivebuddy/internal/domain"
)

func pdfNode(text, pageLabel string) domain.SourceNode {
	return domain.SourceNode{
		Text:     text,
		Score:    0.9,
		Metadata: map[string]any{"type": domain.SourceTypePDF, "page_label": pageLabel},
	}
}

func jiraNode(text string, meta map[string]any) domain.SourceNode {
	m := map[string]any{"type": domain.SourceTypeJira}
	for k, v := range meta {
		m[k] = v
	}
	return domain.SourceNode{Text: text, Score: 0.8, Metadata: m}
}

func frameNode(text string, idx any) domain.SourceNode {
	m := map[string]any{}
	if idx != nil {
		m["frame_index"] = idx
	}
	return domain.SourceNode{Text: text, Score: 0.7, Metadata: m}
}

func TestDeduplicatePDFByPageLabel(t *testing.T) {
	out := DeduplicateSources([]domain.SourceNode{
		pdfNode("first", "12"),
		pdfNode("second", "12"),
		pdfNode("third", "13"),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Text, "first occurrence wins")
	assert.Equal(t, "third", out[1].Text)
}

func TestDeduplicatePDFNumericPageLabel(t *testing.T) {
	// page_label arrives as a JSON number sometimes; it dedupes against
	// the stringified form
	out := DeduplicateSources([]domain.SourceNode{
		{Text: "a", Metadata: map[string]any{"type": domain.SourceTypePDF, "page_label": float64(12)}},
		pdfNode("b", "12"),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Text)
}

func TestDeduplicateJiraByExplicitTicketID(t *testing.T) {
	out := DeduplicateSources([]domain.SourceNode{
		jiraNode("resolution one", map[string]any{"ticket_id": "SAP-1003"}),
		jiraNode("resolution two", map[string]any{"ticket_id": "SAP-1003"}),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "resolution one", out[0].Text)
}

func TestDeduplicateJiraByPatternInText(t *testing.T) {
	out := DeduplicateSources([]domain.SourceNode{
		jiraNode("Ticket SAP-1003: user cannot navigate to Fiori app.", nil),
		jiraNode("SAP-1003 was resolved by clicking the tile group icon.", nil),
		jiraNode("Ticket CRM-2001: user cannot convert lead.", nil),
	})

	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text, "SAP-1003")
	assert.Contains(t, out[1].Text, "CRM-2001")
}

func TestDeduplicateJiraFallsBackToLeadingText(t *testing.T) {
	same := "identical excerpt with no ticket identifier anywhere in it"
	out := DeduplicateSources([]domain.SourceNode{
		jiraNode(same, nil),
		jiraNode(same, nil),
		jiraNode("a different excerpt", nil),
	})
	assert.Len(t, out, 2)
}

func TestDeduplicateFramesByIndex(t *testing.T) {
	out := DeduplicateSources([]domain.SourceNode{
		frameNode("frame a", float64(3)),
		frameNode("frame b", float64(3)),
		frameNode("frame c", float64(4)),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "frame a", out[0].Text)
	assert.Equal(t, "frame c", out[1].Text)
}

func TestDeduplicateFramesWithoutIndexAreKept(t *testing.T) {
	out := DeduplicateSources([]domain.SourceNode{
		frameNode("no index a", nil),
		frameNode("no index b", nil),
		frameNode("negative", float64(-1)),
	})
	assert.Len(t, out, 3, "frames without a usable index never dedupe")
}

func TestDeduplicatePreservesOrderAcrossTypes(t *testing.T) {
	out := DeduplicateSources([]domain.SourceNode{
		frameNode("f0", float64(0)),
		pdfNode("p12", "12"),
		jiraNode("SAP-1001 resolution", nil),
		frameNode("f0 dup", float64(0)),
		pdfNode("p12 dup", "12"),
	})

	require.Len(t, out, 3)
	assert.Equal(t, "f0", out[0].Text)
	assert.Equal(t, "p12", out[1].Text)
	assert.Equal(t, "SAP-1001 resolution", out[2].Text)
}
