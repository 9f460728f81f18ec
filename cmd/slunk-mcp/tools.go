package main

import (
	"context"
	"fmt"
	"strings"

	slunk "github.com/slunk/slunk-mcp"
)

type pingInput struct{}

type searchMessagesInput struct {
	Query    string   `json:"query" jsonschema:"required,description=Terms that must all appear in a message"`
	Channels []string `json:"channels" jsonschema:"description=Restrict the search to these channels"`
	Limit    int      `json:"limit" jsonschema:"description=Maximum number of messages to return"`
}

type searchConversationsInput struct {
	Query string `json:"query" jsonschema:"required,description=Terms that must all appear in a message"`
	Limit int    `json:"limit" jsonschema:"description=Maximum number of conversations to return"`
}

type threadContextInput struct {
	ThreadID string `json:"thread_id" jsonschema:"required,description=Timestamp ID of the thread root"`
}

type parseQueryInput struct {
	Query string `json:"query" jsonschema:"required,description=Natural language search query"`
}

type messageContextInput struct {
	MessageID     string `json:"message_id" jsonschema:"required,description=Timestamp ID of the message"`
	IncludeThread bool   `json:"include_thread" jsonschema:"description=Also return the rest of the message's thread"`
}

type conversationalSearchInput struct {
	Query  string `json:"query" jsonschema:"required,description=Conversational search request"`
	Action string `json:"action" jsonschema:"description=Search action to perform"`
	Limit  int    `json:"limit" jsonschema:"description=Maximum number of messages to return"`
}

type discoverPatternsInput struct {
	TimeRange      string `json:"time_range" jsonschema:"description=Window to scan: day or week or month"`
	PatternType    string `json:"pattern_type" jsonschema:"description=What to count: topics or users"`
	MinOccurrences int    `json:"min_occurrences" jsonschema:"description=Drop patterns seen fewer times than this"`
}

type suggestRelatedInput struct {
	QueryContext   string `json:"query_context" jsonschema:"required,description=Text to find related messages for"`
	SuggestionType string `json:"suggestion_type" jsonschema:"description=Kind of suggestions to return"`
	Limit          int    `json:"limit" jsonschema:"description=Maximum number of suggestions"`
}

// RegisterTools registers the server's tool surface against the store.
// Registration order is the order tools/list reports.
func RegisterTools(srv *slunk.Server, store *Store) error {
	builders := []interface{ Err() error }{
		srv.Tool("ping_slunk").
			Description("Liveness check, returns a fixed pong").
			Handler(func(ctx context.Context, input pingInput) (string, error) {
				return "Pong slunk!", nil
			}),

		srv.Tool("search_messages").
			Description("Keyword search over indexed messages").
			Handler(func(ctx context.Context, input searchMessagesInput) (string, error) {
				msgs := store.SearchMessages(input.Query, input.Channels, input.Limit)
				if len(msgs) == 0 {
					return "No messages found", nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Found %d messages:\n", len(msgs))
				for _, m := range msgs {
					fmt.Fprintf(&b, "[#%s] %s: %s\n", m.Channel, m.User, m.Text)
				}
				return b.String(), nil
			}),

		srv.Tool("searchConversations").
			Description("Search messages grouped into per-channel conversations").
			Handler(func(ctx context.Context, input searchConversationsInput) (string, error) {
				convs := store.SearchConversations(input.Query, input.Limit)
				if len(convs) == 0 {
					return "No conversations found", nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Found %d conversations:\n", len(convs))
				for _, c := range convs {
					fmt.Fprintf(&b, "#%s (%s): %s\n", c.Channel, strings.Join(c.Users, ", "), c.Summary)
				}
				return b.String(), nil
			}),

		srv.Tool("get_thread_context").
			Description("Return all messages of a thread in order").
			Handler(func(ctx context.Context, input threadContextInput) (string, error) {
				msgs, ok := store.ThreadContext(input.ThreadID)
				if !ok {
					return fmt.Sprintf("Thread %s not found", input.ThreadID), nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Thread %s (%d messages):\n", input.ThreadID, len(msgs))
				for _, m := range msgs {
					fmt.Fprintf(&b, "%s: %s\n", m.User, m.Text)
				}
				return b.String(), nil
			}),

		srv.Tool("get_message_context").
			Description("Look up a single message by ID with optional thread").
			Handler(func(ctx context.Context, input messageContextInput) (string, error) {
				msg, thread, ok := store.MessageContext(input.MessageID, input.IncludeThread)
				if !ok {
					return fmt.Sprintf("Message %s not found", input.MessageID), nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Message %s:\n[#%s] %s: %s\n", msg.ID, msg.Channel, msg.User, msg.Text)
				if len(thread) > 0 {
					fmt.Fprintf(&b, "Thread %s (%d messages):\n", msg.ThreadID, len(thread))
					for _, m := range thread {
						fmt.Fprintf(&b, "%s: %s\n", m.User, m.Text)
					}
				}
				return b.String(), nil
			}),

		srv.Tool("parse_natural_query").
			Description("Extract users, channels, and time references from a query").
			Handler(func(ctx context.Context, input parseQueryInput) (string, error) {
				parsed := parseNaturalQuery(input.Query)

				var b strings.Builder
				b.WriteString("Parsed query:\n")
				fmt.Fprintf(&b, "terms: %s\n", strings.Join(parsed.Terms, " "))
				if len(parsed.Users) > 0 {
					fmt.Fprintf(&b, "users: %s\n", strings.Join(parsed.Users, ", "))
				}
				if len(parsed.Channels) > 0 {
					fmt.Fprintf(&b, "channels: %s\n", strings.Join(parsed.Channels, ", "))
				}
				if parsed.TimeRange != "" {
					fmt.Fprintf(&b, "time: %s\n", parsed.TimeRange)
				}
				return b.String(), nil
			}),

		srv.Tool("conversational_search").
			Description("Parse a conversational query and rank matching messages").
			Handler(func(ctx context.Context, input conversationalSearchInput) (string, error) {
				action := input.Action
				if action == "" {
					action = "search"
				}

				parsed := parseNaturalQuery(input.Query)
				msgs := store.Related(parsed.Terms, parsed.Channels, input.Limit)
				if len(msgs) == 0 {
					return fmt.Sprintf("No messages found for %q", input.Query), nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Found %d messages (%s):\n", len(msgs), action)
				for _, m := range msgs {
					fmt.Fprintf(&b, "[#%s] %s: %s\n", m.Channel, m.User, m.Text)
				}
				return b.String(), nil
			}),

		srv.Tool("discover_patterns").
			Description("Surface recurring topics or active users over a time window").
			Handler(func(ctx context.Context, input discoverPatternsInput) (string, error) {
				timeRange := input.TimeRange
				if timeRange == "" {
					timeRange = "week"
				}
				patternType := input.PatternType
				if patternType == "" {
					patternType = "topics"
				}

				patterns := store.DiscoverPatterns(timeRange, patternType, input.MinOccurrences)
				if len(patterns) == 0 {
					return "No patterns found", nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Found %d patterns (%s over last %s):\n", len(patterns), patternType, timeRange)
				for _, p := range patterns {
					fmt.Fprintf(&b, "%s (%d occurrences)\n", p.Label, p.Count)
				}
				return b.String(), nil
			}),

		srv.Tool("suggest_related").
			Description("Suggest messages related to a piece of context text").
			Handler(func(ctx context.Context, input suggestRelatedInput) (string, error) {
				suggestionType := input.SuggestionType
				if suggestionType == "" {
					suggestionType = "similar"
				}

				msgs := store.Related(tokenize(input.QueryContext), nil, input.Limit)
				if len(msgs) == 0 {
					return "No related messages found", nil
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Found %d related messages (%s):\n", len(msgs), suggestionType)
				for _, m := range msgs {
					fmt.Fprintf(&b, "[#%s] %s: %s\n", m.Channel, m.User, m.Text)
				}
				return b.String(), nil
			}),
	}

	for _, b := range builders {
		if err := b.Err(); err != nil {
			return err
		}
	}
	return nil
}

// parsedQuery is the structured form of a natural language query.
type parsedQuery struct {
	Terms     []string
	Users     []string
	Channels  []string
	TimeRange string
}

// parseNaturalQuery is a tokenizer, not a language model: it recognizes
// "from <user>", "#channel" tokens, and a few fixed time words, and treats
// everything else as search terms.
func parseNaturalQuery(query string) parsedQuery {
	var p parsedQuery

	tokens := strings.Fields(query)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		lower := strings.ToLower(tok)

		switch {
		case strings.HasPrefix(tok, "#") && len(tok) > 1:
			p.Channels = append(p.Channels, strings.TrimPrefix(tok, "#"))
		case lower == "from" && i+1 < len(tokens):
			p.Users = append(p.Users, strings.ToLower(tokens[i+1]))
			i++
		case lower == "yesterday" || lower == "today":
			p.TimeRange = lower
		case lower == "last" && i+1 < len(tokens):
			next := strings.ToLower(tokens[i+1])
			if next == "week" || next == "month" || next == "year" {
				p.TimeRange = "last " + next
				i++
				continue
			}
			p.Terms = append(p.Terms, lower)
		case lower == "in" || lower == "messages":
			// connective noise, drop
		default:
			p.Terms = append(p.Terms, lower)
		}
	}

	return p
}
