package documents

import (
	"testing"

	"github.com/veridoc/veridoc/internal/verification"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"queued to processing", StatusQueued, StatusProcessing, true},
		{"queued to error", StatusQueued, StatusError, true},
		{"queued to validated", StatusQueued, StatusValidated, false},
		{"processing to validated", StatusProcessing, StatusValidated, true},
		{"processing to needs_review", StatusProcessing, StatusNeedsReview, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to error", StatusProcessing, StatusError, true},
		{"processing to finalized", StatusProcessing, StatusFinalized, false},
		{"validated to finalized", StatusValidated, StatusFinalized, true},
		{"needs_review to finalized", StatusNeedsReview, StatusFinalized, true},
		{"failed to finalized", StatusFailed, StatusFinalized, true},
		{"error to queued", StatusError, StatusQueued, true},
		{"error to processing", StatusError, StatusProcessing, false},
		{"finalized to queued", StatusFinalized, StatusQueued, true},
		{"finalized to processing", StatusFinalized, StatusProcessing, false},
		{"finalized to error", StatusFinalized, StatusError, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		outcome verification.Outcome
		want    Status
	}{
		{verification.OutcomePass, StatusValidated},
		{verification.OutcomeReview, StatusNeedsReview},
		{verification.OutcomeFail, StatusFailed},
	}

	for _, tc := range tests {
		if got := OutcomeStatus(tc.outcome); got != tc.want {
			t.Errorf("OutcomeStatus(%s) = %s, want %s", tc.outcome, got, tc.want)
		}
	}
}

func TestAllowedType(t *testing.T) {
	allowed := []string{"pdf", "jpg", "jpeg", "png", "tiff", "bmp"}

	tests := []struct {
		filename string
		want     bool
	}{
		{"invoice.pdf", true},
		{"scan.PDF", true},
		{"photo.jpeg", true},
		{"page.tiff", true},
		{"archive.zip", false},
		{"noextension", false},
		{"trailing.", false},
	}

	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			if got := allowedType(tc.filename, allowed); got != tc.want {
				t.Errorf("allowedType(%q) = %v, want %v", tc.filename, got, tc.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "scan.pdf", "scan.pdf"},
		{"path stripped", "../../etc/passwd", "passwd"},
		{"empty", "", "document"},
		{"spaces escaped", "my scan.pdf", "my%20scan.pdf"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeFilename(tc.in); got != tc.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	pdfHeader := []byte("%PDF-1.7\n")

	tests := []struct {
		name   string
		header string
		data   []byte
		want   string
	}{
		{"explicit header wins", "application/pdf", []byte("x"), "application/pdf"},
		{"octet-stream sniffed", "application/octet-stream", pdfHeader, "application/pdf"},
		{"empty sniffed", "", pdfHeader, "application/pdf"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectContentType(tc.header, tc.data); got != tc.want {
				t.Errorf("detectContentType = %q, want %q", got, tc.want)
			}
		})
	}
}
