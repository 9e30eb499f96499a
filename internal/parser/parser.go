package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Priya8975/event-inserter/internal/domain"
)

// ErrInvalid is returned for a well-formed line that lacks id or timestamp.
var ErrInvalid = errors.New("required field missing")

// MalformedError is returned when a line is not valid JSON. RecoveredID holds
// the id found by scanning the raw text, or "" if none was found.
type MalformedError struct {
	RecoveredID string
	Err         error
}

func (e *MalformedError) Error() string {
	if e.RecoveredID != "" {
		return fmt.Sprintf("malformed item (id %q): %v", e.RecoveredID, e.Err)
	}
	return fmt.Sprintf("malformed item: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Item is a validated event item.
type Item struct {
	ID        string
	Timestamp int64
	Type      string
	Host      string
	State     string
}

// Parse decodes one input line into an Item.
func Parse(line string) (Item, error) {
	var raw domain.EventItem
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Item{}, &MalformedError{RecoveredID: RecoverID(line), Err: err}
	}

	if raw.ID == nil || raw.Timestamp == nil {
		return Item{}, ErrInvalid
	}

	return Item{
		ID:        *raw.ID,
		Timestamp: *raw.Timestamp,
		Type:      raw.Type,
		Host:      raw.Host,
		State:     raw.State,
	}, nil
}

// RecoverID pulls an id out of text that failed to decode. It splits the line
// on double quotes, finds the first token that is exactly `id` and returns the
// token two places after it, skipping the `:` separator.
func RecoverID(line string) string {
	tokens := strings.Split(line, `"`)
	for i, tok := range tokens {
		if tok != "id" {
			continue
		}
		if i+2 < len(tokens) {
			return tokens[i+2]
		}
		return ""
	}
	return ""
}
