// Package transcript holds the growing, editable transcript produced by the
// pipeline and exposed to the presentation layer.
package transcript

import (
	"sync"

	"livescribe/internal/pipeline"
)

// EditableSegment wraps an immutable pipeline segment with a separately
// mutable display text, initialized from the segment's text and diverging
// when edited. The original text and score are retained for filtering and
// audit.
type EditableSegment struct {
	Segment     pipeline.Segment `json:"segment"`
	DisplayText string           `json:"display_text"`
}

// Entry is one visible transcript line: the store index plus the current
// display text.
type Entry struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Store is an ordered collection of editable segments. Append-only from the
// pipeline's perspective: order equals arrival order and the count never
// decreases within a session. All mutation is serialized through the store's
// methods.
type Store struct {
	mu          sync.RWMutex
	segments    []EditableSegment
	subscribers map[int]chan EditableSegment
	nextSubID   int
}

// NewStore creates an empty transcript store.
func NewStore() *Store {
	return &Store{subscribers: make(map[int]chan EditableSegment)}
}

// Append wraps the segment and adds it at the end, then notifies subscribers
// without blocking the append path.
func (s *Store) Append(segment pipeline.Segment) {
	s.mu.Lock()
	entry := EditableSegment{Segment: segment, DisplayText: segment.Text}
	s.segments = append(s.segments, entry)
	for _, ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
	s.mu.Unlock()
}

// Edit overwrites the display text of the entry at index. Out-of-range
// indexes are a silent no-op; the original segment text and score are never
// touched.
func (s *Store) Edit(index int, newText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.segments) {
		return
	}
	s.segments[index].DisplayText = newText
}

// Visible returns, in store order, every entry whose speech confidence
// (1 - no-speech probability) exceeds the threshold.
func (s *Store) Visible(threshold float64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []Entry
	for i, seg := range s.segments {
		if 1-float64(seg.Segment.NoSpeechProb) > threshold {
			entries = append(entries, Entry{Index: i, Text: seg.DisplayText})
		}
	}
	return entries
}

// Len returns the number of stored segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Get returns the entry at index.
func (s *Store) Get(index int) (EditableSegment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.segments) {
		return EditableSegment{}, false
	}
	return s.segments[index], true
}

// Subscribe registers a buffered notification channel that receives each
// appended segment. Slow subscribers miss notifications rather than stall
// the pipeline. The returned id is passed to Unsubscribe.
func (s *Store) Subscribe() (int, <-chan EditableSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan EditableSegment, 64)
	s.subscribers[id] = ch
	return id, ch
}

// SubscriberCount returns the number of active subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Unsubscribe removes and closes a subscriber channel.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}
