package pagination

import (
	"net/url"
	"testing"
)

func TestFromQuery(t *testing.T) {
	cfg := Config{DefaultPageSize: 20, MaxPageSize: 100}

	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&page_size=50", 3, 50},
		{"clamped to max", "page=1&page_size=500", 1, 100},
		{"invalid values", "page=abc&page_size=-5", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := FromQuery(values, cfg)

			if req.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", req.Page, tt.wantPage)
			}
			if req.PageSize != tt.wantSize {
				t.Errorf("PageSize = %d, want %d", req.PageSize, tt.wantSize)
			}
		})
	}
}

func TestFromQuerySearchAndSort(t *testing.T) {
	cfg := Config{DefaultPageSize: 20, MaxPageSize: 100}
	values, _ := url.ParseQuery("search=invoice&sort=-uploaded_at")

	req := FromQuery(values, cfg)

	if req.Search == nil || *req.Search != "invoice" {
		t.Errorf("Search = %v, want invoice", req.Search)
	}
	if len(req.Sort) != 1 || !req.Sort[0].Descending {
		t.Errorf("Sort = %+v, want one descending field", req.Sort)
	}
}
