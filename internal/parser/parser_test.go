package parser

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	line := `{"id":"scsmbstgra", "state":"STARTED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495212}`

	item, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	if item.ID != "scsmbstgra" {
		t.Errorf("ID = %q, want %q", item.ID, "scsmbstgra")
	}
	if item.Timestamp != 1491377495212 {
		t.Errorf("Timestamp = %d, want 1491377495212", item.Timestamp)
	}
	if item.Type != "APPLICATION_LOG" || item.Host != "12345" || item.State != "STARTED" {
		t.Errorf("optional fields = %+v", item)
	}
}

func TestParse_OptionalFieldsAbsent(t *testing.T) {
	item, err := Parse(`{"id":"scsmbstgrb", "state":"STARTED", "timestamp":1491377495213}`)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if item.Type != "" || item.Host != "" {
		t.Errorf("Type/Host should be empty, got %q/%q", item.Type, item.Host)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{
			name: "no id",
			line: `{"state":"STARTED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495212}`,
		},
		{
			name: "null id",
			line: `{"id":null, "timestamp":1491377495212}`,
		},
		{
			name: "no timestamp",
			line: `{"id":"abc", "state":"FINISHED"}`,
		},
		{
			name: "null timestamp",
			line: `{"id":"abc", "timestamp":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantID string
	}{
		{
			name:   "truncated with id",
			line:   `{"id":"scsmbstgra", "state":"STARTED", "type":"APPLICATION_LOG","host":"12345", `,
			wantID: "scsmbstgra",
		},
		{
			name:   "broken prefix without id",
			line:   `:"STARTED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495212}`,
			wantID: "",
		},
		{
			name:   "id token at end of line",
			line:   `{"id"`,
			wantID: "",
		},
		{
			name:   "id with spaced separator",
			line:   `{"id" : "spaced", "timestamp":`,
			wantID: "spaced",
		},
		{
			name:   "wrong timestamp type",
			line:   `{"id":"typed", "timestamp":"yesterday"}`,
			wantID: "typed",
		},
		{
			name:   "empty line",
			line:   ``,
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)

			var merr *MalformedError
			if !errors.As(err, &merr) {
				t.Fatalf("want *MalformedError, got %v", err)
			}
			if merr.RecoveredID != tt.wantID {
				t.Errorf("RecoveredID = %q, want %q", merr.RecoveredID, tt.wantID)
			}
		})
	}
}

func TestRecoverID_FieldNamedLikeID(t *testing.T) {
	// Only a token exactly equal to id counts
	line := `{"uuid":"nope","host":"id-host","id":"real"`
	if got := RecoverID(line); got != "real" {
		t.Errorf("RecoverID = %q, want %q", got, "real")
	}
}
