package wallhaven

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const searchBody = `{
  "data": [
    {
      "id": "wh-994",
      "url": "https://wallhaven.cc/w/wh-994",
      "path": "https://w.wallhaven.cc/full/wh/wallhaven-994.jpg",
      "resolution": "1920x1080",
      "dimension_x": 1920,
      "dimension_y": 1080,
      "file_size": 350000,
      "file_type": "image/jpeg",
      "colors": ["#663399"],
      "purity": "sfw",
      "category": "general"
    },
    {
      "id": "no-path",
      "url": "https://wallhaven.cc/w/no-path",
      "path": "",
      "dimension_x": 1920,
      "dimension_y": 1080
    }
  ],
  "meta": {"current_page": 1, "last_page": 3, "per_page": 24, "total": 60}
}`

func TestSearchMapsResults(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", testLogger())
	candidates, err := client.Search(context.Background(), domain.SearchCriteria{
		Query:      "mountains",
		Categories: "110",
		Purity:     "100",
		Sorting:    domain.SortRandom,
		AtLeast:    "1920x1080",
		Page:       2,
	})
	require.NoError(t, err)

	// entries without a file URL are dropped
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "wh-994", c.ID)
	assert.Equal(t, "https://w.wallhaven.cc/full/wh/wallhaven-994.jpg", c.URL)
	assert.Equal(t, "https://wallhaven.cc/w/wh-994", c.PageURL)
	assert.Equal(t, 1920, c.Width)
	assert.Equal(t, 1080, c.Height)
	assert.Equal(t, "image/jpeg", c.FileType)

	assert.Equal(t, "mountains", gotQuery["q"][0])
	assert.Equal(t, "110", gotQuery["categories"][0])
	assert.Equal(t, "100", gotQuery["purity"][0])
	assert.Equal(t, "random", gotQuery["sorting"][0])
	assert.Equal(t, "1920x1080", gotQuery["atleast"][0])
	assert.Equal(t, "2", gotQuery["page"][0])
	assert.Equal(t, "secret", gotQuery["apikey"][0])
}

func TestSearchOmitsEmptyParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("q"))
		assert.False(t, r.URL.Query().Has("apikey"))
		w.Write([]byte(`{"data": [], "meta": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", testLogger())
	candidates, err := client.Search(context.Background(), domain.SearchCriteria{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", testLogger())
	_, err := client.Search(context.Background(), domain.SearchCriteria{})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusInternalServerError, domain.ErrSourceUnreachable},
		{"bad gateway", http.StatusBadGateway, domain.ErrSourceUnreachable},
		{"unauthorized", http.StatusUnauthorized, domain.ErrInvalidResponse},
		{"not found", http.StatusNotFound, domain.ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "", testLogger())
			_, err := client.Search(context.Background(), domain.SearchCriteria{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", testLogger())
	_, err := client.Search(context.Background(), domain.SearchCriteria{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 12*time.Second, rl.RetryAfter)
}

func TestFetchDownloadsBytes(t *testing.T) {
	payload := []byte("jpeg bytes here")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", testLogger())
	data, err := client.Fetch(context.Background(), domain.Candidate{ID: "x", URL: srv.URL + "/full/x.jpg"})
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchWithoutURL(t *testing.T) {
	client := NewClient("http://unused.invalid", "", testLogger())
	_, err := client.Fetch(context.Background(), domain.Candidate{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestUnreachableHost(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", testLogger())
	_, err := client.Search(context.Background(), domain.SearchCriteria{})
	assert.ErrorIs(t, err, domain.ErrSourceUnreachable)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"))
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
}
