package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/http/handlers"
)

type fakeReporter struct {
	reportFn func(ctx context.Context) ([]user.CityStat, error)
}

func (f *fakeReporter) CityReport(ctx context.Context) ([]user.CityStat, error) {
	return f.reportFn(ctx)
}

func TestCityStatsHandler(t *testing.T) {
	lagos := "Lagos"

	tests := []struct {
		name           string
		reportFn       func(ctx context.Context) ([]user.CityStat, error)
		wantStatusCode int
		wantGroups     int
	}{
		{
			name: "success",
			reportFn: func(ctx context.Context) ([]user.CityStat, error) {
				return []user.CityStat{
					{City: &lagos, AverageAge: 30, TotalUsers: 2, Users: []user.UserSummary{}},
					{City: nil, AverageAge: 20, TotalUsers: 1, Users: []user.UserSummary{}},
				}, nil
			},
			wantStatusCode: http.StatusOK,
			wantGroups:     2,
		},
		{
			name: "empty store",
			reportFn: func(ctx context.Context) ([]user.CityStat, error) {
				return []user.CityStat{}, nil
			},
			wantStatusCode: http.StatusOK,
			wantGroups:     0,
		},
		{
			name: "store down",
			reportFn: func(ctx context.Context) ([]user.CityStat, error) {
				return nil, user.ErrStoreUnavailable
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name: "unexpected error",
			reportFn: func(ctx context.Context) ([]user.CityStat, error) {
				return nil, errors.New("pipeline failed")
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewReportsHandler(&fakeReporter{reportFn: tt.reportFn}, 0)
			r := setupRouter(http.MethodGet, "/city-stats", h.CityStats)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/city-stats", nil))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if w.Code != http.StatusOK {
				return
			}

			var resp struct {
				Message string          `json:"message"`
				Data    json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			var groups []map[string]any
			if err := json.Unmarshal(resp.Data, &groups); err != nil {
				t.Fatalf("data is not an array: %s", resp.Data)
			}

			if len(groups) != tt.wantGroups {
				t.Fatalf("got %d groups, want %d", len(groups), tt.wantGroups)
			}

			if tt.wantGroups == 2 {
				if groups[1]["city"] != nil {
					t.Fatalf("expected null city in second group, got %v", groups[1]["city"])
				}
			}
		})
	}
}
