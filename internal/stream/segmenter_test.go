package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golivebuddy/internal/domain"
)

const sourcesStream = `Here is the answer.__SOURCES__[{"text":"a","score":0.9,"metadata":{"type":"pdf_document","page_label":"12","source":"doc.pdf"}}]__END_SOURCES__ and some trailing text`

// feedAll replays a full stream split into the given chunk sizes and
// returns all events including the flush.
func feedAll(s *Segmenter, stream string, chunkSize int) []Event {
	var events []Event
	for i := 0; i < len(stream); i += chunkSize {
		end := i + chunkSize
		if end > len(stream) {
			end = len(stream)
		}
		events = append(events, s.Feed(stream[i:end])...)
	}
	return append(events, s.Flush()...)
}

func concatText(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == EventText || ev.Type == EventError {
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}

func countType(events []Event, t EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func TestSegmenterChunkBoundaryInvariance(t *testing.T) {
	for chunkSize := 1; chunkSize <= len(sourcesStream); chunkSize++ {
		events := feedAll(NewSegmenter(), sourcesStream, chunkSize)

		require.Equal(t, 1, countType(events, EventSources), "chunk size %d", chunkSize)
		assert.Equal(t, "Here is the answer. and some trailing text", concatText(events), "chunk size %d", chunkSize)

		for _, ev := range events {
			if ev.Type == EventSources {
				require.Len(t, ev.Sources, 1)
				assert.Equal(t, "a", ev.Sources[0].Text)
				assert.Equal(t, "12", ev.Sources[0].PageLabel())
				assert.Equal(t, domain.SourceTypePDF, ev.Sources[0].Type())
			}
		}
	}
}

func TestSegmenterPartialMarkerNeverEmittedAsText(t *testing.T) {
	s := NewSegmenter()

	events := s.Feed("Answer__SOUR")
	assert.Equal(t, "Answer", concatText(events))
	for _, ev := range events {
		assert.NotContains(t, ev.Text, "__SOUR")
	}

	events = s.Feed(`CES__[]__END_SOURCES__`)
	require.Equal(t, 1, countType(events, EventSources))
	assert.Empty(t, concatText(events))

	// known-zero sources, not "not yet known"
	for _, ev := range events {
		if ev.Type == EventSources {
			assert.NotNil(t, ev.Sources)
			assert.Len(t, ev.Sources, 0)
		}
	}
}

func TestSegmenterFocusBlock(t *testing.T) {
	stream := `Click the tile group icon.__FOCUS__{"x_pct":5,"y_pct":10,"w_pct":20,"h_pct":8,"label":"Click here"}__END_FOCUS__ Then proceed.`

	for _, chunkSize := range []int{1, 3, 7, len(stream)} {
		events := feedAll(NewSegmenter(), stream, chunkSize)

		require.Equal(t, 1, countType(events, EventFocus), "chunk size %d", chunkSize)
		assert.Equal(t, "Click the tile group icon. Then proceed.", concatText(events))
		for _, ev := range events {
			if ev.Type == EventFocus {
				require.NotNil(t, ev.Focus)
				assert.Equal(t, 5.0, ev.Focus.XPct)
				assert.Equal(t, "Click here", ev.Focus.Label)
			}
		}
	}
}

func TestSegmenterDoneIsConsumedNotEmitted(t *testing.T) {
	s := NewSegmenter()
	var events []Event
	events = append(events, s.Feed("All set.\nDONE\n")...)
	events = append(events, s.Flush()...)

	assert.Equal(t, 1, countType(events, EventDone))
	assert.Equal(t, "All set.\n", concatText(events))
	assert.NotContains(t, concatText(events), "DONE")
}

func TestSegmenterTrailingDoneWithoutNewline(t *testing.T) {
	// the wire protocol ends streams with DONE directly after the last block
	stream := `Here is the answer.__SOURCES__[{"text":"a","score":0.9,"metadata":{"type":"pdf_document","page_label":"12","source":"doc.pdf"}}]__END_SOURCES__DONE`

	for _, chunkSize := range []int{1, 5, len(stream)} {
		events := feedAll(NewSegmenter(), stream, chunkSize)
		assert.Equal(t, 1, countType(events, EventDone), "chunk size %d", chunkSize)
		assert.Equal(t, 1, countType(events, EventSources), "chunk size %d", chunkSize)
		assert.Equal(t, "Here is the answer.", concatText(events), "chunk size %d", chunkSize)
	}
}

func TestSegmenterErrorGlyphLine(t *testing.T) {
	s := NewSegmenter()
	var events []Event
	events = append(events, s.Feed("⚠️ backend unavailable\n")...)
	events = append(events, s.Flush()...)

	require.Equal(t, 1, countType(events, EventError))
	// the error line stays visible as text
	assert.Contains(t, concatText(events), "backend unavailable")
}

func TestSegmenterMalformedPayloadFallsBackToRawText(t *testing.T) {
	s := NewSegmenter()
	events := s.Feed("__SOURCES__{definitely not json}__END_SOURCES__")
	assert.Empty(t, events, "malformed block must not emit while streaming")

	events = s.Flush()
	assert.Equal(t, 0, countType(events, EventSources))
	assert.Contains(t, concatText(events), "definitely not json")
}

func TestSegmenterTruncatedBlockDroppedAtFlush(t *testing.T) {
	s := NewSegmenter()
	events := s.Feed(`partial __SOURCES__[{"text":"a"`)
	assert.Empty(t, events)
	assert.Empty(t, s.Flush())
}

func TestSegmenterResidualTextEmittedAtFlush(t *testing.T) {
	s := NewSegmenter()
	assert.Equal(t, "trailing without newline ", concatText(s.Feed("trailing without newline __")))
	// the held "__" is proven not to be a marker once the stream ends
	assert.Equal(t, "__", concatText(s.Flush()))
}

func TestSegmenterSecondSourcesBlockEmitsAgain(t *testing.T) {
	stream := `a__SOURCES__[{"text":"one","score":0.5,"metadata":{"type":"pdf_document","page_label":"1"}}]__END_SOURCES__` +
		`b__SOURCES__[{"text":"two","score":0.6,"metadata":{"type":"pdf_document","page_label":"2"}}]__END_SOURCES__c`

	events := feedAll(NewSegmenter(), stream, len(stream))
	require.Equal(t, 2, countType(events, EventSources))

	var last []domain.SourceNode
	for _, ev := range events {
		if ev.Type == EventSources {
			last = ev.Sources
		}
	}
	require.Len(t, last, 1)
	assert.Equal(t, "two", last[0].Text)
}

func TestSegmenterSourcesAreDeduplicated(t *testing.T) {
	stream := `__SOURCES__[` +
		`{"text":"a","score":0.9,"metadata":{"type":"pdf_document","page_label":"12"}},` +
		`{"text":"b","score":0.8,"metadata":{"type":"pdf_document","page_label":"12"}}` +
		`]__END_SOURCES__`

	events := feedAll(NewSegmenter(), stream, len(stream))
	require.Equal(t, 1, countType(events, EventSources))
	for _, ev := range events {
		if ev.Type == EventSources {
			require.Len(t, ev.Sources, 1)
			assert.Equal(t, "a", ev.Sources[0].Text, "first occurrence wins")
		}
	}
}
