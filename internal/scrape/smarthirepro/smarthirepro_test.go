package smarthirepro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/scrape/util"
)

const listingHTML = `<html><body>
<a class="block-link" href="/jobs/senior-react-developer-101/">
  <div class="job-listing">
    <div class="job-company__logo"><img src="/logo.png"></div>
    <h3 class="job__title"> Senior React&nbsp;Developer </h3>
    <div class="job__company"><span>Gurzu Inc</span><span>Full Time</span></div>
    <div class="job__deadline">7 days remaining</div>
  </div>
</a>
<a class="block-link" href="/jobs/qa-intern-102/">
  <div class="job-listing">
    <h3 class="job__title">QA Intern</h3>
    <div class="job__company"><span>Gurzu Inc</span><span>Internship</span></div>
  </div>
</a>
</body></html>`

const detailHTML = `<html><body>
<ul class="list-unstyled">
  <li><strong>Date Posted:</strong> <span>October 10, 2025</span></li>
  <li><strong>Employment Type:</strong> <span>Full Time (On-site)</span></li>
  <li><strong>Experience:</strong> <span>3+ years</span></li>
  <li><strong>Deadline:</strong> <span>Oct 23, 2025</span></li>
  <li><strong>Salary:</strong> <span>Negotiable</span></li>
</ul>
</body></html>`

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestParseListing(t *testing.T) {
	t.Run("Should read every job card", func(t *testing.T) {
		recs := ParseListing(doc(t, listingHTML), "https://smarthirepro.com")
		require.Len(t, recs, 2)

		assert.Equal(t, "Senior React Developer", recs[0].Title)
		assert.Equal(t, "Gurzu Inc", recs[0].Company)
		assert.Equal(t, "Full Time", recs[0].Type)
		assert.Equal(t, "7 days remaining", recs[0].RawDeadline)
		assert.Equal(t, "https://smarthirepro.com/jobs/senior-react-developer-101/", recs[0].Link)
		assert.Equal(t, domain.Tags{Level: "senior", Roles: []string{"frontend"}}, recs[0].Tags)

		assert.Equal(t, "QA Intern", recs[1].Title)
		assert.Empty(t, recs[1].RawDeadline)
		assert.Equal(t, "intern", recs[1].Tags.Level)
	})
}

func TestParseDetail(t *testing.T) {
	t.Run("Should read labelled facts and ignore unknown labels", func(t *testing.T) {
		d := ParseDetail(doc(t, detailHTML))
		assert.Equal(t, Detail{
			PostedDate: "October 10, 2025",
			Type:       "Full Time (On-site)",
			Experience: "3+ years",
			Deadline:   "Oct 23, 2025",
		}, d)
	})

	t.Run("Should only override with present facts", func(t *testing.T) {
		r := domain.Record{Type: "Full Time", RawDeadline: "7 days remaining"}
		Detail{Experience: "2 years"}.Apply(&r)
		assert.Equal(t, "Full Time", r.Type)
		assert.Equal(t, "7 days remaining", r.RawDeadline)
		assert.Equal(t, "2 years", r.Experience)
	})
}

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/company/gurzu-inc/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	})
	mux.HandleFunc("/jobs/senior-react-developer-101/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(detailHTML))
	})
	mux.HandleFunc("/jobs/qa-intern-102/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := util.NewClient(util.NewHostLimiter(0, 1), "")

	t.Run("Should enrich listings with detail pages", func(t *testing.T) {
		s := New(Config{BaseURL: srv.URL, Companies: []string{"gurzu-inc"}, Detail: true}, client, nil)
		batch, err := s.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "smarthirepro", batch.Source)
		require.Len(t, batch.Records, 2)

		first := batch.Records[0]
		assert.Equal(t, "October 10, 2025", first.RawPostedDate)
		assert.Equal(t, "Oct 23, 2025", first.RawDeadline)
		assert.Equal(t, "3+ years", first.Experience)

		// detail page failed; listing data survives
		second := batch.Records[1]
		assert.Equal(t, "QA Intern", second.Title)
		assert.Empty(t, second.RawPostedDate)
		assert.Equal(t, "Internship", second.Type)

		for _, r := range batch.Records {
			assert.Equal(t, srv.URL+"/company/gurzu-inc/", r.Website)
		}
	})

	t.Run("Should fail when every company listing fails", func(t *testing.T) {
		s := New(Config{BaseURL: srv.URL, Companies: []string{"missing"}}, client, nil)
		_, err := s.Fetch(context.Background())
		require.Error(t, err)
	})

	t.Run("Should tolerate one failing company", func(t *testing.T) {
		s := New(Config{BaseURL: srv.URL, Companies: []string{"missing", "gurzu-inc"}}, client, nil)
		batch, err := s.Fetch(context.Background())
		require.NoError(t, err)
		assert.Len(t, batch.Records, 2)
	})
}
