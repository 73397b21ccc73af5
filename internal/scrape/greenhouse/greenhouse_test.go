package greenhouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsync-engine/internal/scrape/util"
)

const boardHTML = `<html><body>
<div class="opening"><a href="/acme/jobs/4001">Senior Backend Engineer</a></div>
<div class="opening"><a href="/acme/jobs/4001">Senior Backend Engineer</a></div>
<div class="opening"><a href="/acme/jobs/4002">View opening</a></div>
<a href="/acme/about">About us</a>
</body></html>`

const jobHTML = `<html><head>
<meta property="article:published_time" content="2025-10-02T08:00:00Z">
</head><body>
<h1>Staff Data Engineer</h1>
<div class="location">Berlin, Germany, Berlin</div>
<div id="content"><p>Build   pipelines.</p></div>
</body></html>`

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(boardHTML))
	})
	mux.HandleFunc("/acme/jobs/4001", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/acme/jobs/4002", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(jobHTML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(Config{
		BaseURL:   srv.URL,
		Companies: []Company{{Slug: "acme", Name: "Acme"}},
	}, util.NewClient(util.NewHostLimiter(0, 1), ""), nil)

	t.Run("Should dedupe links and hydrate from job pages", func(t *testing.T) {
		batch, err := s.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "greenhouse", batch.Source)
		require.Len(t, batch.Records, 2)

		assert.Equal(t, "Senior Backend Engineer", batch.Records[0].Title)
		assert.Equal(t, "Acme", batch.Records[0].Company)
		assert.Empty(t, batch.Records[0].Location)

		r := batch.Records[1]
		assert.Equal(t, "Staff Data Engineer", r.Title)
		assert.Equal(t, "Berlin, Germany", r.Location)
		assert.Equal(t, "Build pipelines.", r.Description)
		assert.Equal(t, "2025-10-02T08:00:00Z", r.RawPostedDate)
		assert.Equal(t, srv.URL+"/acme/jobs/4002", r.Link)
		for _, rec := range batch.Records {
			assert.Equal(t, srv.URL+"/acme", rec.Website)
		}
	})
}

func TestExtractJobID(t *testing.T) {
	assert.Equal(t, "123", extractJobID("https://boards.greenhouse.io/acme/jobs/123?gh_src=x"))
	assert.Equal(t, "", extractJobID("https://boards.greenhouse.io/acme"))
}
