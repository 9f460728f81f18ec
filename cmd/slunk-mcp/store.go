package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Message is one indexed chat message.
type Message struct {
	ID        string
	Channel   string
	User      string
	Text      string
	ThreadID  string
	Timestamp time.Time
}

// Conversation groups the messages of one channel over a time window.
type Conversation struct {
	Channel  string
	Users    []string
	Summary  string
	Messages []Message
}

// Store is an in-memory message index. Lookups are keyword based: a message
// matches a query when every query term appears in its text. Results are
// deterministic for a given store content.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	byID     map[string]int
	byThread map[string][]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID:     make(map[string]int),
		byThread: make(map[string][]int),
	}
}

// Add indexes a message. Messages keep insertion order.
func (s *Store) Add(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.messages)
	s.messages = append(s.messages, msg)
	s.byID[msg.ID] = idx
	if msg.ThreadID != "" {
		s.byThread[msg.ThreadID] = append(s.byThread[msg.ThreadID], idx)
	}
}

// Len returns the number of indexed messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// SearchMessages returns up to limit messages matching every term of the
// query, optionally restricted to the given channels. A limit of zero or
// less means no cap.
func (s *Store) SearchMessages(query string, channels []string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	channelSet := make(map[string]bool, len(channels))
	for _, ch := range channels {
		channelSet[strings.TrimPrefix(ch, "#")] = true
	}

	var out []Message
	for _, msg := range s.messages {
		if len(channelSet) > 0 && !channelSet[msg.Channel] {
			continue
		}
		if !matchesAll(msg.Text, terms) {
			continue
		}
		out = append(out, msg)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// SearchConversations groups matching messages by channel and returns up to
// limit conversations, channels in alphabetical order.
func (s *Store) SearchConversations(query string, limit int) []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)

	byChannel := make(map[string][]Message)
	for _, msg := range s.messages {
		if !matchesAll(msg.Text, terms) {
			continue
		}
		byChannel[msg.Channel] = append(byChannel[msg.Channel], msg)
	}

	names := make([]string, 0, len(byChannel))
	for name := range byChannel {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Conversation
	for _, name := range names {
		msgs := byChannel[name]

		seen := make(map[string]bool)
		var users []string
		for _, m := range msgs {
			if !seen[m.User] {
				seen[m.User] = true
				users = append(users, m.User)
			}
		}

		out = append(out, Conversation{
			Channel:  name,
			Users:    users,
			Summary:  fmt.Sprintf("%d matching messages in #%s", len(msgs), name),
			Messages: msgs,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ThreadContext returns the messages of a thread in insertion order. The
// boolean reports whether the thread exists.
func (s *Store) ThreadContext(threadID string) ([]Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idxs, ok := s.byThread[threadID]
	if !ok {
		return nil, false
	}

	out := make([]Message, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.messages[i])
	}
	return out, true
}

// MessageContext returns the message with the given ID and, when asked and
// the message belongs to a thread, the thread's messages in order. The
// boolean reports whether the message exists.
func (s *Store) MessageContext(id string, includeThread bool) (Message, []Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return Message{}, nil, false
	}
	msg := s.messages[idx]

	var thread []Message
	if includeThread && msg.ThreadID != "" {
		for _, i := range s.byThread[msg.ThreadID] {
			thread = append(thread, s.messages[i])
		}
	}
	return msg, thread, true
}

// Pattern is one recurring label surfaced by DiscoverPatterns.
type Pattern struct {
	Label string
	Count int
}

// DiscoverPatterns counts recurring terms or active users over a window
// ending at the newest indexed message. patternType selects "topics"
// (recurring terms, the default) or "users" (message counts per user);
// patterns seen fewer than minOccurrences times are dropped. Results are
// ordered by count, ties alphabetically.
func (s *Store) DiscoverPatterns(timeRange, patternType string, minOccurrences int) []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return nil
	}
	if minOccurrences <= 0 {
		minOccurrences = 2
	}

	window := 7 * 24 * time.Hour
	switch timeRange {
	case "day":
		window = 24 * time.Hour
	case "month":
		window = 30 * 24 * time.Hour
	}

	newest := s.messages[0].Timestamp
	for _, m := range s.messages {
		if m.Timestamp.After(newest) {
			newest = m.Timestamp
		}
	}
	cutoff := newest.Add(-window)

	counts := make(map[string]int)
	for _, m := range s.messages {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		if patternType == "users" {
			counts[m.User]++
			continue
		}
		seen := make(map[string]bool)
		for _, term := range topicTerms(m.Text) {
			if !seen[term] {
				seen[term] = true
				counts[term]++
			}
		}
	}

	var out []Pattern
	for label, count := range counts {
		if count >= minOccurrences {
			out = append(out, Pattern{Label: label, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Related scores messages by how many of the given terms appear in their
// text and returns the best matches, optionally restricted to channels.
// Ties keep insertion order.
func (s *Store) Related(terms, channels []string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channelSet := make(map[string]bool, len(channels))
	for _, ch := range channels {
		channelSet[strings.TrimPrefix(ch, "#")] = true
	}

	type scored struct {
		msg   Message
		score int
		order int
	}
	var hits []scored
	for i, msg := range s.messages {
		if len(channelSet) > 0 && !channelSet[msg.Channel] {
			continue
		}
		lower := strings.ToLower(msg.Text)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{msg: msg, score: score, order: i})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})

	var out []Message
	for _, h := range hits {
		out = append(out, h.msg)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// tokenize lowercases and splits a query into terms.
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// topicStopwords are common words too frequent to count as topics.
var topicStopwords = map[string]bool{
	"and": true, "any": true, "are": true, "for": true, "its": true,
	"not": true, "our": true, "out": true, "the": true, "this": true,
	"that": true, "was": true, "with": true, "you": true,
}

// topicTerms extracts the countable terms of a message text: lowercased
// words trimmed of punctuation, at least three letters, stopwords dropped.
func topicTerms(text string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?:;\"'()")
		if len(tok) < 3 || topicStopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// matchesAll reports whether text contains every term.
func matchesAll(text string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// SeedStore loads a deterministic sample corpus, so a fresh server answers
// search calls with stable results.
func SeedStore(s *Store) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	msgs := []Message{
		{ID: "1710061200.000100", Channel: "general", User: "alice", Text: "Morning all, the API gateway deploy is done", ThreadID: "1710061200.000100", Timestamp: base},
		{ID: "1710061260.000200", Channel: "general", User: "bob", Text: "Nice. Any errors in the API logs?", ThreadID: "1710061200.000100", Timestamp: base.Add(1 * time.Minute)},
		{ID: "1710061320.000300", Channel: "general", User: "alice", Text: "Clean so far, latency looks normal", ThreadID: "1710061200.000100", Timestamp: base.Add(2 * time.Minute)},
		{ID: "1710064800.000400", Channel: "engineering", User: "carol", Text: "Draft of the search ranking doc is up for review", Timestamp: base.Add(1 * time.Hour)},
		{ID: "1710064860.000500", Channel: "engineering", User: "dave", Text: "Left comments, mostly about the API pagination", Timestamp: base.Add(61 * time.Minute)},
		{ID: "1710068400.000600", Channel: "hiring", User: "erin", Text: "We are hiring two contractors for the search team", Timestamp: base.Add(2 * time.Hour)},
		{ID: "1710068460.000700", Channel: "hiring", User: "frank", Text: "Posting goes out tomorrow, looking for Go developers", Timestamp: base.Add(121 * time.Minute)},
	}

	for _, m := range msgs {
		s.Add(m)
	}
}
