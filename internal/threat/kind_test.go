package threat

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestKind_WireIndices(t *testing.T) {
	// The indices are the detection backend's wire encoding and must not move.
	want := map[Kind]int{
		MixedLangMarker:          0,
		InvisibleUnicodeDetector: 1,
		MarkdownLinkDetector:     2,
		HiddenTextDetector:       3,
		Base64Detector:           4,
		SecretsMarker:            5,
		ProfanityDetector:        6,
		PiiMarker:                7,
		ExploitClassifier:        8,
		ObfuscationDetector:      9,
		CodeFilter:               10,
		GibberishDetector:        11,
		IntellectualPropertyLeak: 12,
	}
	for k, idx := range want {
		if k.Index() != idx {
			t.Errorf("%s: expected index %d, got %d", k, idx, k.Index())
		}
	}
	if len(All()) != 13 {
		t.Fatalf("expected 13 kinds, got %d", len(All()))
	}
}

func TestFromIndex(t *testing.T) {
	k, err := FromIndex(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != SecretsMarker {
		t.Errorf("expected SecretsMarker, got %s", k)
	}

	for _, idx := range []int{-1, 13, 99} {
		if _, err := FromIndex(idx); !errors.Is(err, ErrInvalidThreatKind) {
			t.Errorf("FromIndex(%d): expected ErrInvalidThreatKind, got %v", idx, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"PiiMarker", PiiMarker, false},
		{"piimarker", PiiMarker, false},
		{"  SecretsMarker ", SecretsMarker, false},
		{"IntellectualPropertyLeak", IntellectualPropertyLeak, false},
		{"Pii", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidThreatKind) {
					t.Fatalf("expected ErrInvalidThreatKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseKinds_StopsOnUnknown(t *testing.T) {
	if _, err := ParseKinds([]string{"PiiMarker", "Nope"}); !errors.Is(err, ErrInvalidThreatKind) {
		t.Fatalf("expected ErrInvalidThreatKind, got %v", err)
	}
	kinds, err := ParseKinds([]string{"PiiMarker", "SecretsMarker"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != PiiMarker || kinds[1] != SecretsMarker {
		t.Errorf("unexpected kinds: %v", kinds)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(PiiMarker, CodeFilter); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(PiiMarker, Kind(42)); !errors.Is(err, ErrInvalidThreatKind) {
		t.Errorf("expected ErrInvalidThreatKind, got %v", err)
	}
}

func TestKind_String(t *testing.T) {
	if ExploitClassifier.String() != "ExploitClassifier" {
		t.Errorf("unexpected name %q", ExploitClassifier.String())
	}
	if Kind(-3).String() != "Kind(-3)" {
		t.Errorf("unexpected name for invalid kind: %q", Kind(-3).String())
	}
}

func TestKind_Descriptions(t *testing.T) {
	for _, k := range All() {
		if k.Description() == "" {
			t.Errorf("%s has no description", k)
		}
	}
	if Kind(100).Description() != "" {
		t.Error("invalid kind should have no description")
	}
}

func TestMarkers_JSONUsesNames(t *testing.T) {
	m := Markers{PiiMarker: "ssn detected", SecretsMarker: "api key"}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"PiiMarker":"ssn detected","SecretsMarker":"api key"}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var back Markers
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[PiiMarker] != "ssn detected" || back[SecretsMarker] != "api key" {
		t.Errorf("unexpected decoded markers: %v", back)
	}

	if err := json.Unmarshal([]byte(`{"Bogus":"x"}`), &back); err == nil {
		t.Error("expected error for unknown kind name")
	}
}
