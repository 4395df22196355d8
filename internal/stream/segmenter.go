// Package stream turns the backend's delimiter-framed chat stream into
// typed events. Marker strings never leave this package.
package stream

import (
	"encoding/json"
	"strings"

	"golivebuddy/internal/domain"
)

// In-band delimiters embedded in the raw stream by the backend
const (
	sourcesStart = "__SOURCES__"
	sourcesEnd   = "__END_SOURCES__"
	focusStart   = "__FOCUS__"
	focusEnd     = "__END_FOCUS__"
	doneLine     = "DONE"
	errorGlyph   = "⚠️" // warning sign, prefixes in-band error lines
)

// EventType tags a segmenter event
type EventType string

// Event types
const (
	EventText    EventType = "text"
	EventSources EventType = "sources"
	EventFocus   EventType = "focus"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Event is one typed segment extracted from the stream
type Event struct {
	Type    EventType               `json:"type"`
	Text    string                  `json:"text,omitempty"`
	Sources []domain.SourceNode     `json:"sources,omitempty"`
	Focus   *domain.FocusCoordinate `json:"focus,omitempty"`
}

// Segmenter incrementally classifies an append-only chunk stream into
// text, sources and focus events. One instance serves exactly one
// streaming response; it holds no state beyond its parse buffer.
type Segmenter struct {
	buf string
}

// NewSegmenter returns a segmenter with an empty buffer
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Feed appends a chunk to the buffer and returns all events that can be
// extracted so far. Chunk boundaries carry no meaning; a marker or a JSON
// payload may be split arbitrarily across calls.
func (s *Segmenter) Feed(chunk string) []Event {
	s.buf += chunk

	var events []Event
	for {
		si := strings.Index(s.buf, sourcesStart)
		if si >= 0 {
			if rel := strings.Index(s.buf[si:], sourcesEnd); rel >= 0 {
				payload := s.buf[si+len(sourcesStart) : si+rel]
				var nodes []domain.SourceNode
				if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &nodes); err == nil {
					events = append(events, s.classify(s.buf[:si])...)
					events = append(events, Event{Type: EventSources, Sources: DeduplicateSources(nodes)})
					s.buf = s.buf[si+rel+len(sourcesEnd):]
					continue
				}
				// Malformed payload: treat the block as not yet complete.
				// Flush resolves it to raw text if the stream ends this way.
			}
		}

		fi := strings.Index(s.buf, focusStart)
		if fi >= 0 && (si < 0 || fi < si) {
			if rel := strings.Index(s.buf[fi:], focusEnd); rel >= 0 {
				payload := s.buf[fi+len(focusStart) : fi+rel]
				var coord domain.FocusCoordinate
				if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &coord); err == nil {
					events = append(events, s.classify(s.buf[:fi])...)
					events = append(events, Event{Type: EventFocus, Focus: &coord})
					s.buf = s.buf[fi+rel+len(focusEnd):]
					continue
				}
			}
		}

		if si < 0 && fi < 0 {
			emit, hold := splitHoldback(s.buf)
			if emit != "" {
				events = append(events, s.classify(emit)...)
			}
			s.buf = hold
		}
		return events
	}
}

// Flush resolves the residual buffer at stream end. Residue containing an
// unmatched start delimiter is a truncated block and is dropped without
// error; anything else is proven plain text and emitted.
func (s *Segmenter) Flush() []Event {
	residual := s.buf
	s.buf = ""
	if residual == "" {
		return nil
	}
	if unmatched(residual, sourcesStart, sourcesEnd) || unmatched(residual, focusStart, focusEnd) {
		return nil
	}
	return s.classify(residual)
}

func unmatched(buf, start, end string) bool {
	i := strings.Index(buf, start)
	return i >= 0 && !strings.Contains(buf[i:], end)
}

// classify splits a span of proven-text into text, done and error events.
// DONE and error-glyph lines are matched against whole lines; everything
// else is accumulated into contiguous text events.
func (s *Segmenter) classify(text string) []Event {
	var events []Event
	var run strings.Builder

	flushRun := func() {
		if run.Len() > 0 {
			events = append(events, Event{Type: EventText, Text: run.String()})
			run.Reset()
		}
	}

	rest := text
	for rest != "" {
		line := rest
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			line = rest[:nl+1]
			rest = rest[nl+1:]
		} else {
			rest = ""
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == doneLine:
			flushRun()
			events = append(events, Event{Type: EventDone})
		case strings.HasPrefix(trimmed, errorGlyph):
			flushRun()
			events = append(events, Event{Type: EventError, Text: line})
		default:
			run.WriteString(line)
		}
	}
	flushRun()
	return events
}

// splitHoldback separates the emittable head of the buffer from a suffix
// that may still grow into a marker. A partial marker must never surface
// as visible text until proven not to be one.
func splitHoldback(buf string) (emit, hold string) {
	// Longest suffix that is a prefix of a start marker
	markerHold := len(buf)
	for i := range buf {
		suf := buf[i:]
		if isMarkerPrefix(suf) {
			markerHold = i
			break
		}
	}

	// The trailing partial line may still become a DONE or error line
	lineHold := len(buf)
	if partial := buf[strings.LastIndexByte(buf, '\n')+1:]; partial != "" {
		if isControlPrefix(partial) {
			lineHold = len(buf) - len(partial)
		}
	}

	cut := markerHold
	if lineHold < cut {
		cut = lineHold
	}
	return buf[:cut], buf[cut:]
}

func isMarkerPrefix(s string) bool {
	if len(s) >= len(sourcesStart) {
		return false
	}
	return strings.HasPrefix(sourcesStart, s) || strings.HasPrefix(focusStart, s)
}

func isControlPrefix(line string) bool {
	if line == doneLine {
		return true // might still extend into an ordinary line
	}
	if len(line) < len(doneLine) && strings.HasPrefix(doneLine, line) {
		return true
	}
	// incomplete glyph bytes
	return len(line) < len(errorGlyph) && strings.HasPrefix(errorGlyph, line)
}
