package webhooks

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBackoffSchedule(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 8 * time.Minute},
		{8, time.Hour},
		{20, time.Hour},
	}

	for _, tc := range tests {
		if got := cfg.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("max_attempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.BackoffFactor != 2 {
		t.Errorf("backoff_factor = %d, want 2", cfg.BackoffFactor)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.RequestTimeout())
	}

	bad := &Config{BackoffBase: "1h", BackoffCap: "30s"}
	if err := bad.Finalize(nil); err == nil {
		t.Fatal("expected error for cap below base")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://hooks.example.com/veridoc", false},
		{"http://localhost:9090/hook", false},
		{"ftp://example.com/hook", true},
		{"/relative/path", true},
		{"", true},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			err := validateURL(tc.url)
			if tc.wantErr && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("error = %v, want ErrInvalidURL", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"document_id":"x"}`)

	a := sign("secret", body)
	b := sign("secret", body)
	if a != b {
		t.Error("signature not deterministic")
	}
	if a == sign("other", body) {
		t.Error("signature ignores secret")
	}
	if len(a) != len("sha256=")+64 {
		t.Errorf("unexpected signature length: %d", len(a))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{
		DeliveryID:      uuid.New(),
		DocumentID:      uuid.New(),
		TemplateID:      uuid.New(),
		TemplateVersion: 2,
		Version:         3,
		Classification:  "pass",
		Confidence:      0.91,
		ExtractedData:   map[string]string{"total": "42.00"},
		FieldConfidence: map[string]float64{"total": 0.91},
		MissingFields:   []string{},
		FinalizedAt:     time.Now().UTC(),
	}

	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{
		"delivery_id", "document_id", "template_id", "template_version",
		"version", "classification", "extracted_data",
		"per_field_confidence", "missing_fields",
	} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("payload missing key %q", key)
		}
	}
}

func TestNewDeliveries(t *testing.T) {
	subs := []Subscriber{
		{ID: uuid.New(), URL: "https://a.example/hook", Enabled: true},
		{ID: uuid.New(), URL: "https://b.example/hook", Enabled: false},
		{ID: uuid.New(), URL: "https://c.example/hook", Enabled: true},
	}
	payload := Payload{
		DocumentID:     uuid.New(),
		Classification: "pass",
		Confidence:     0.9,
	}

	deliveries, err := newDeliveries(subs, payload)
	if err != nil {
		t.Fatalf("newDeliveries: %v", err)
	}

	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2 (disabled subscriber skipped)", len(deliveries))
	}

	seen := map[uuid.UUID]bool{}
	for _, d := range deliveries {
		if seen[d.ID] {
			t.Errorf("duplicate delivery id %s", d.ID)
		}
		seen[d.ID] = true

		if d.DocumentID != payload.DocumentID {
			t.Errorf("DocumentID = %s, want %s", d.DocumentID, payload.DocumentID)
		}

		var p Payload
		if err := json.Unmarshal(d.Payload, &p); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if p.DeliveryID != d.ID {
			t.Errorf("payload delivery_id = %s, want %s", p.DeliveryID, d.ID)
		}
	}

	if deliveries[0].SubscriberID != subs[0].ID || deliveries[1].SubscriberID != subs[2].ID {
		t.Error("deliveries not mapped to the enabled subscribers")
	}
}
