package datagen

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Priya8975/event-inserter/internal/domain"
)

func TestGenerate_EveryIDTwiceWithOppositeStates(t *testing.T) {
	var buf bytes.Buffer
	err := Generate(&buf, Options{Pairs: 50, Host: "12345", Type: "APPLICATION_LOG", StartTime: 1491377495212, Seed: 7})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}

	states := map[string][]string{}
	lines := 0
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines++
		var item domain.EventItem
		if err := json.Unmarshal(scanner.Bytes(), &item); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if item.ID == nil || item.Timestamp == nil {
			t.Fatalf("line %d missing required fields", lines)
		}
		if item.Host != "12345" || item.Type != "APPLICATION_LOG" {
			t.Errorf("line %d host/type = %q/%q", lines, item.Host, item.Type)
		}
		states[*item.ID] = append(states[*item.ID], item.State)
	}

	if lines != 100 {
		t.Errorf("lines = %d, want 100", lines)
	}
	if len(states) != 50 {
		t.Errorf("distinct ids = %d, want 50", len(states))
	}
	for id, s := range states {
		if len(s) != 2 {
			t.Errorf("id %s appears %d times, want 2", id, len(s))
			continue
		}
		if s[0] == s[1] {
			t.Errorf("id %s has states %v, want one STARTED and one FINISHED", id, s)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	opts := Options{Pairs: 20, Seed: 42}
	Generate(&a, opts)
	Generate(&b, opts)

	if a.String() != b.String() {
		t.Error("same seed should produce the same file")
	}
}

func TestGenerate_NegativePairs(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, Options{Pairs: -1}); err == nil {
		t.Error("expected error for negative pairs")
	}
}
