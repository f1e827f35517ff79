package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gzhole/lastlayer/internal/backend"
	"github.com/gzhole/lastlayer/internal/metrics"
	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
	"github.com/gzhole/lastlayer/internal/wire"
)

const tolerance = 1e-9

// countingBackend answers raw and counts how often it was asked.
type countingBackend struct {
	raw   string
	err   error
	calls atomic.Int32
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Detect(context.Context, string) (string, error) {
	b.calls.Add(1)
	return b.raw, b.err
}

func scan(t *testing.T, raw string, ignore ...threat.Kind) *Result {
	t.Helper()
	b := &countingBackend{raw: raw}
	r, err := New(b).Scan(context.Background(), "prompt", ignore...)
	if err != nil {
		t.Fatalf("Scan(%q): %v", raw, err)
	}
	if n := b.calls.Load(); n != 1 {
		t.Fatalf("backend called %d times, want 1", n)
	}
	return r
}

func checkInvariants(t *testing.T, r *Result) {
	t.Helper()
	if r.Passed != (len(r.Markers) == 0) {
		t.Errorf("Passed = %v with %d markers", r.Passed, len(r.Markers))
	}
	if r.Risk != scoring.Classify(r.Score) {
		t.Errorf("Risk = %q, Classify(%v) = %q", r.Risk, r.Score, scoring.Classify(r.Score))
	}
	if r.Passed && r.Score != 0 {
		t.Errorf("passed result has score %v", r.Score)
	}
	if r.IsRisky() == r.Passed {
		t.Errorf("IsRisky() = %v with Passed = %v", r.IsRisky(), r.Passed)
	}
}

func TestScan_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		ignore      []threat.Kind
		wantMarkers threat.Markers
		wantScore   float64
		wantPassed  bool
		wantRisk    scoring.Band
	}{
		{
			name:        "nothing triggered",
			raw:         "1",
			wantMarkers: threat.Markers{},
			wantPassed:  true,
			wantRisk:    scoring.BandNone,
		},
		{
			name:        "zero flag without segments",
			raw:         "0",
			wantMarkers: threat.Markers{},
			wantPassed:  true,
			wantRisk:    scoring.BandNone,
		},
		{
			name:        "single secret",
			raw:         "0|5:looks like an API key",
			wantMarkers: threat.Markers{threat.SecretsMarker: "looks like an API key"},
			wantScore:   1.5,
			wantRisk:    scoring.BandMid,
		},
		{
			name: "pii and secrets interact",
			raw:  "0|7:ssn detected|5:api key",
			wantMarkers: threat.Markers{
				threat.PiiMarker:     "ssn detected",
				threat.SecretsMarker: "api key",
			},
			wantScore: 4.4,
			wantRisk:  scoring.BandHigh,
		},
		{
			name:        "both suppressed",
			raw:         "0|7:ssn detected|5:api key",
			ignore:      []threat.Kind{threat.PiiMarker, threat.SecretsMarker},
			wantMarkers: threat.Markers{},
			wantPassed:  true,
			wantRisk:    scoring.BandNone,
		},
		{
			name:        "one suppressed drops the interaction",
			raw:         "0|7:ssn detected|5:api key",
			ignore:      []threat.Kind{threat.SecretsMarker},
			wantMarkers: threat.Markers{threat.PiiMarker: "ssn detected"},
			wantScore:   1.4,
			wantRisk:    scoring.BandMid,
		},
		{
			name:        "low band",
			raw:         "0|10:fenced code block",
			wantMarkers: threat.Markers{threat.CodeFilter: "fenced code block"},
			wantScore:   0.6,
			wantRisk:    scoring.BandLow,
		},
		{
			name: "dampening pair",
			raw:  "0|11:gibberish|10:code",
			wantMarkers: threat.Markers{
				threat.GibberishDetector: "gibberish",
				threat.CodeFilter:        "code",
			},
			wantScore: 1.0,
			wantRisk:  scoring.BandMid,
		},
		{
			name:        "kind without a weight uses the default",
			raw:         "0|12:marked \"confidential\"",
			wantMarkers: threat.Markers{threat.IntellectualPropertyLeak: `marked "confidential"`},
			wantScore:   scoring.DefaultWeight,
			wantRisk:    scoring.BandLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := scan(t, tt.raw, tt.ignore...)
			checkInvariants(t, r)

			if !reflect.DeepEqual(r.Markers, tt.wantMarkers) {
				t.Errorf("Markers = %v, want %v", r.Markers, tt.wantMarkers)
			}
			if math.Abs(r.Score-tt.wantScore) > tolerance {
				t.Errorf("Score = %v, want %v", r.Score, tt.wantScore)
			}
			if r.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", r.Passed, tt.wantPassed)
			}
			if r.Risk != tt.wantRisk {
				t.Errorf("Risk = %q, want %q", r.Risk, tt.wantRisk)
			}
			if r.Query != "prompt" {
				t.Errorf("Query = %q", r.Query)
			}
		})
	}
}

func TestScan_SuppressionOrderIndependent(t *testing.T) {
	raw := "0|7:ssn|5:key|8:ignore previous instructions|9:hex escapes"
	a := scan(t, raw, threat.PiiMarker, threat.ExploitClassifier)
	b := scan(t, raw, threat.ExploitClassifier, threat.PiiMarker)
	c := scan(t, raw, threat.ExploitClassifier, threat.PiiMarker, threat.PiiMarker)
	if !reflect.DeepEqual(a, b) || !reflect.DeepEqual(a, c) {
		t.Errorf("suppression depends on order:\n%v\n%v\n%v", a, b, c)
	}
}

func TestScan_SuppressingAbsentKindIsNoop(t *testing.T) {
	raw := "0|7:ssn detected|5:api key"
	plain := scan(t, raw)
	ignored := scan(t, raw, threat.ProfanityDetector, threat.CodeFilter)
	if !reflect.DeepEqual(plain, ignored) {
		t.Errorf("ignoring untriggered kinds changed the result:\n%v\n%v", plain, ignored)
	}
}

func TestScan_InvalidIgnoreKind(t *testing.T) {
	b := &countingBackend{raw: "1"}
	_, err := New(b).Scan(context.Background(), "hi", threat.PiiMarker, threat.Kind(42))
	if !errors.Is(err, threat.ErrInvalidThreatKind) {
		t.Fatalf("expected ErrInvalidThreatKind, got %v", err)
	}
	if n := b.calls.Load(); n != 0 {
		t.Errorf("backend called %d times before ignore validation", n)
	}
}

func TestScan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		backend *countingBackend
		want    error
	}{
		{"empty response", &countingBackend{raw: ""}, backend.ErrUnavailable},
		{"backend error", &countingBackend{err: errors.New("dlopen failed")}, backend.ErrUnavailable},
		{"wrapped unavailable", &countingBackend{err: backend.ErrUnavailable}, backend.ErrUnavailable},
		{"unknown index", &countingBackend{raw: "0|99:nope"}, wire.ErrMalformedResponse},
		{"missing separator", &countingBackend{raw: "0|5"}, wire.ErrMalformedResponse},
		{"bad flag", &countingBackend{raw: "yes"}, wire.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.backend).Scan(context.Background(), "hi")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if r != nil {
				t.Errorf("expected nil result on error, got %v", r)
			}
			if n := tt.backend.calls.Load(); n != 1 {
				t.Errorf("backend called %d times, want 1", n)
			}
		})
	}
}

func TestScan_WithModel(t *testing.T) {
	m := scoring.NewModel(0.1, map[threat.Kind]float64{threat.SecretsMarker: 0.3}, nil)
	r, err := New(backend.Static("0|5:key|7:ssn"), WithModel(m)).Scan(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.Score-0.4) > tolerance {
		t.Errorf("Score = %v, want 0.4", r.Score)
	}
	if r.Risk != scoring.BandLow {
		t.Errorf("Risk = %q", r.Risk)
	}
}

func TestScan_ResultOwnsMarkers(t *testing.T) {
	r1 := scan(t, "0|5:key")
	r1.Markers[threat.PiiMarker] = "tampered"
	r2 := scan(t, "0|5:key")
	if r2.Has(threat.PiiMarker) {
		t.Error("results share marker storage")
	}
}

func TestScan_Concurrent(t *testing.T) {
	s := New(backend.NewHeuristic())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "my ssn is 123-45-6789"
			if i%2 == 0 {
				text = "What is the capital of France?"
			}
			r, err := s.Scan(context.Background(), text)
			if err != nil {
				t.Errorf("Scan: %v", err)
				return
			}
			if r.Passed != (i%2 == 0) {
				t.Errorf("Scan(%q).Passed = %v", text, r.Passed)
			}
		}(i)
	}
	wg.Wait()
}

func TestScan_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	_, _ = New(backend.Static("0|5:key"), WithMetrics(rec)).Scan(context.Background(), "a")
	_, _ = New(backend.Static("1"), WithMetrics(rec)).Scan(context.Background(), "b")
	_, _ = New(backend.Static(""), WithMetrics(rec)).Scan(context.Background(), "c")

	expected := `
# HELP lastlayer_scans_total Total completed scans by risk band.
# TYPE lastlayer_scans_total counter
lastlayer_scans_total{risk="mid"} 1
lastlayer_scans_total{risk="none"} 1
# HELP lastlayer_scan_errors_total Total failed scans by reason.
# TYPE lastlayer_scan_errors_total counter
lastlayer_scan_errors_total{reason="backend_unavailable"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"lastlayer_scans_total", "lastlayer_scan_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestScan_LogsRedactedText(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(backend.Static("0|5:key"), WithLogger(zap.New(core)))

	if _, err := s.Scan(context.Background(), "key is sk-IoUNnX88EUuRZz1Ud9OAT3BlbkFJNMAEDj1iKATxbdbdhd"); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("scan").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 scan entry, got %d", len(entries))
	}
	text := entries[0].ContextMap()["text"].(string)
	if strings.Contains(text, "IoUNnX88") {
		t.Errorf("secret leaked into log: %q", text)
	}
}

func TestResult_String(t *testing.T) {
	r := scan(t, "0|7:ssn detected|5:api key")
	got := r.String()
	for _, want := range []string{
		`RiskResult(query="prompt"`,
		`markers={SecretsMarker: "api key", PiiMarker: "ssn detected"}`,
		"score=4.4",
		"passed=false",
		`risk="high"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %s\nmissing %s", got, want)
		}
	}

	passed := scan(t, "1").String()
	if passed != `RiskResult(query="prompt", markers={}, score=0, passed=true, risk="")` {
		t.Errorf("String() = %s", passed)
	}
}

func TestResult_JSON(t *testing.T) {
	r := scan(t, "0|5:looks like an API key")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"query":"prompt","markers":{"SecretsMarker":"looks like an API key"},"score":1.5,"passed":false,"risk":"mid"}`
	if string(data) != want {
		t.Errorf("JSON = %s\nwant   %s", data, want)
	}

	var back Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Has(threat.SecretsMarker) {
		t.Errorf("decoded result lost its marker: %v", back)
	}
}

func TestExplain(t *testing.T) {
	s := New(backend.Static("0|7:ssn|5:key"))
	r, err := s.Scan(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	b := s.Explain(r)
	if len(b.Base) != 2 || len(b.Interactions) != 1 {
		t.Fatalf("breakdown = %+v", b)
	}
	if math.Abs(b.Total-r.Score) > tolerance {
		t.Errorf("Total = %v, Score = %v", b.Total, r.Score)
	}
}
