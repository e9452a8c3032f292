package trackerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestTrackErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *TrackError
		wantErr  string
		wantUser string
	}{
		{
			name:     "what only",
			err:      &TrackError{What: "something broke"},
			wantErr:  "something broke",
			wantUser: "Error: something broke",
		},
		{
			name:     "what and why",
			err:      &TrackError{What: "something broke", Why: "bad input"},
			wantErr:  "something broke: bad input",
			wantUser: "Error: something broke\n\nWhy: bad input",
		},
		{
			name: "full error",
			err: &TrackError{
				What: "something broke",
				Why:  "bad input",
				Fix:  "try again",
			},
			wantErr:  "something broke: bad input",
			wantUser: "Error: something broke\n\nWhy: bad input\n\nFix: try again",
		},
		{
			name: "with cause",
			err: &TrackError{
				What:  "something broke",
				Cause: errors.New("underlying error"),
			},
			wantErr:  "something broke: underlying error",
			wantUser: "Error: something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantErr {
				t.Errorf("Error() = %q, want %q", got, tt.wantErr)
			}
			if got := tt.err.UserMessage(); got != tt.wantUser {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestTrackErrorJSON(t *testing.T) {
	err := NotFound("tasks", "T007").WithCause(errors.New("row missing"))

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("MarshalJSON failed: %v", marshalErr)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if result["code"] != string(CodeNotFound) {
		t.Errorf("code = %v, want %v", result["code"], CodeNotFound)
	}
	if result["what"] != "tasks T007 not found" {
		t.Errorf("what = %v", result["what"])
	}
	if result["cause"] != "row missing" {
		t.Errorf("cause = %v, want %v", result["cause"], "row missing")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("modules", "M001"), 404},
		{SchemaError("issues", "missing column severity"), 500},
		{IOError("read", "data/tasks.csv", errors.New("disk gone")), 500},
		{Conflict("issues", "I002"), 409},
		{Validation("progress out of range", "got 1.5"), 400},
		{AuthFailed(), 401},
		{Forbidden("resolve issues"), 403},
		{errors.New("plain"), 500},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestInspectionHelpers(t *testing.T) {
	wrapped := fmt.Errorf("saving: %w", Conflict("tasks", "T001"))

	if !IsConflict(wrapped) {
		t.Error("IsConflict should see through wrapping")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound matched a conflict error")
	}
	if !errors.Is(wrapped, &TrackError{Code: CodeConflict}) {
		t.Error("errors.Is should match by code")
	}
}
