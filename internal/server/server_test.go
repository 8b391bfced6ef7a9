package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voyagen/guidevault/internal/config"
	"github.com/voyagen/guidevault/internal/fetcher"
	"github.com/voyagen/guidevault/internal/metrics"
	"github.com/voyagen/guidevault/internal/models"
	"github.com/voyagen/guidevault/internal/reminder"
	"github.com/voyagen/guidevault/internal/service"
	"github.com/voyagen/guidevault/internal/store"
)

const playlist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1.uk" group-title="News",BBC One
http://stream/bbc.m3u8
#EXTINF:-1 tvg-id="film4.uk" group-title="Movies",Film 4
http://stream/film4.m3u8
`

const guideXML = `<tv>
  <channel id="bbc1.uk"><display-name>BBC One</display-name></channel>
  <programme channel="bbc1.uk" start="20250101100000 +0000" stop="20250101110000 +0000"><title>News</title></programme>
  <programme channel="bbc1.uk" start="20250101110000 +0000" stop="20250101120000 +0000"><title>Film</title></programme>
</tv>`

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type fixture struct {
	srv     *Server
	handler http.Handler
	guide   *service.Guide
	notes   chan string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	return newFixtureWithFetcher(t, opts, nil)
}

func newFixtureWithFetcher(t *testing.T, opts Options, f service.Fetcher) *fixture {
	t.Helper()
	notes := make(chan string, 8)
	sched := reminder.New(reminder.NotifierFunc(func(title, body string) error {
		notes <- title + "|" + body
		return nil
	}), 0)
	t.Cleanup(sched.Stop)

	g := service.New(service.Deps{Store: store.NewMemory(), Fetcher: f, Reminders: sched, Metrics: opts.Metrics}, service.Options{
		Now: func() time.Time { return time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC) },
	})
	srv := New(g, config.Default(), opts)
	return &fixture{srv: srv, handler: srv.Handler(), guide: g, notes: notes}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	if rec := f.do(t, "POST", "/api/imports/playlist", playlist); rec.Code != http.StatusOK {
		t.Fatalf("playlist import: %d %s", rec.Code, rec.Body)
	}
	if rec := f.do(t, "POST", "/api/imports/guide", guideXML); rec.Code != http.StatusOK {
		t.Fatalf("guide import: %d %s", rec.Code, rec.Body)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{Health: pinger{}})
	rec := f.do(t, "GET", "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthy: %d", rec.Code)
	}
	if body := decode[map[string]any](t, rec); body["imports"] != nil {
		t.Errorf("imports reported without a queue: %v", body["imports"])
	}

	f = newFixture(t, Options{Health: pinger{err: errors.New("down")}})
	rec = f.do(t, "GET", "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: %d", rec.Code)
	}
	if e := decode[APIError](t, rec); e.Status != 503 || !strings.Contains(e.Detail, "down") {
		t.Errorf("error = %+v", e)
	}
}

func TestImportAndRead(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, "POST", "/api/imports/playlist", playlist)
	if rec.Code != http.StatusOK {
		t.Fatalf("playlist: %d %s", rec.Code, rec.Body)
	}
	if res := decode[service.PlaylistResult](t, rec); res.Channels != 2 {
		t.Errorf("playlist result = %+v", res)
	}

	rec = f.do(t, "POST", "/api/imports/guide", guideXML)
	if rec.Code != http.StatusOK {
		t.Fatalf("guide: %d %s", rec.Code, rec.Body)
	}
	if res := decode[service.GuideResult](t, rec); res.Events == 0 || res.Placeholders != 1 {
		t.Errorf("guide result = %+v", res)
	}

	rec = f.do(t, "GET", "/api/channels?category=News", "")
	list := decode[struct {
		Channels []models.Channel `json:"channels"`
		Total    int              `json:"total"`
	}](t, rec)
	if list.Total != 1 || list.Channels[0].ID != "bbc1.uk" {
		t.Errorf("channels = %+v", list)
	}

	cats := decode[[]models.Category](t, f.do(t, "GET", "/api/categories", ""))
	if len(cats) != 2 {
		t.Errorf("categories = %+v", cats)
	}

	guide := decode[struct {
		Channels []models.EPGChannel `json:"channels"`
	}](t, f.do(t, "GET", "/api/guide", ""))
	if len(guide.Channels) != 2 {
		t.Errorf("guide = %d channels", len(guide.Channels))
	}

	ch := decode[models.EPGChannel](t, f.do(t, "GET", "/api/guide/bbc1.uk", ""))
	if len(ch.Events) != 2 {
		t.Errorf("bbc events = %d", len(ch.Events))
	}
	if rec := f.do(t, "GET", "/api/guide/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown channel: %d", rec.Code)
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	rec := f.do(t, "POST", "/api/guide/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if body := decode[map[string]any](t, rec); body["channels"] != float64(2) {
		t.Errorf("reload = %v", body)
	}
}

func TestMalformedGuide(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	rec := f.do(t, "POST", "/api/imports/guide", "<tv><programme>")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if n := len(f.guide.Guide()); n != 2 {
		t.Errorf("guide replaced by malformed import: %d channels", n)
	}
}

func TestImportTooLarge(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)
	f.srv.maxUpload = 64

	rec := f.do(t, "POST", "/api/imports/guide", guideXML)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", rec.Code, rec.Body)
	}
	if n := len(f.guide.Guide()); n != 2 {
		t.Errorf("oversized import changed the guide: %d channels", n)
	}
}

func TestNowNext(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	rec := f.do(t, "GET", "/api/guide/bbc1.uk/now-next?at=2025-01-01T10:30:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	np := decode[models.NowPlaying](t, rec)
	if np.Current == nil || np.Current.Title != "News" || np.Next == nil || np.Next.Title != "Film" {
		t.Errorf("now/next = %+v", np)
	}

	// unix seconds for 2025-01-01T09:00:00Z
	np = decode[models.NowPlaying](t, f.do(t, "GET", "/api/guide/bbc1.uk/now-next?at=1735722000", ""))
	if np.Current != nil || np.Next == nil || np.Next.Title != "News" {
		t.Errorf("before schedule = %+v", np)
	}

	if rec := f.do(t, "GET", "/api/guide/bbc1.uk/now-next?at=tomorrow", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad at: %d", rec.Code)
	}
	if rec := f.do(t, "GET", "/api/guide/nope/now-next", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown channel: %d", rec.Code)
	}

	all := decode[[]models.NowPlaying](t, f.do(t, "GET", "/api/guide/now?at=2025-01-01T10:30:00Z", ""))
	if len(all) != 2 || all[0].ChannelID != "bbc1.uk" {
		t.Errorf("whats on = %+v", all)
	}
}

func TestAdjustOffset(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	rec := f.do(t, "POST", "/api/guide/bbc1.uk/offset", `{"minutes": -15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	ch := decode[models.EPGChannel](t, rec)
	if ch.OffsetMinutes != -15 || ch.Events[0].Start.Minute() != 45 {
		t.Errorf("channel = %+v", ch)
	}

	for _, body := range []string{`{}`, `nope`} {
		if rec := f.do(t, "POST", "/api/guide/bbc1.uk/offset", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: %d", body, rec.Code)
		}
	}
	if rec := f.do(t, "POST", "/api/guide/nope/offset", `{"minutes": 5}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown channel: %d", rec.Code)
	}
}

func TestRemap(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	if rec := f.do(t, "POST", "/api/guide/remap", `{"film4.uk":{"name":"Film Four"}}`); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	ch := decode[models.EPGChannel](t, f.do(t, "GET", "/api/guide/film4.uk", ""))
	if ch.Name != "Film Four" {
		t.Errorf("name = %q", ch.Name)
	}
	if rec := f.do(t, "POST", "/api/guide/remap", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty mapping: %d", rec.Code)
	}
}

func TestReminders(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	rec := f.do(t, "POST", "/api/reminders", `{"channelId":"bbc1.uk"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	select {
	case n := <-f.notes:
		if n != "Film (BBC One)|"+reminder.BodySoon {
			t.Errorf("notification = %q", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	if rec := f.do(t, "POST", "/api/reminders", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing channel: %d", rec.Code)
	}
	if rec := f.do(t, "POST", "/api/reminders", `{"channelId":"bbc1.uk","leadMinutes":-1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("negative lead: %d", rec.Code)
	}
	if rec := f.do(t, "POST", "/api/reminders", `{"channelId":"bbc1.uk","eventId":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("missing event: %d", rec.Code)
	}
	if rec := f.do(t, "DELETE", "/api/reminders/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown: %d", rec.Code)
	}
	if got := decode[[]reminder.Handle](t, f.do(t, "GET", "/api/reminders", "")); len(got) != 0 {
		t.Errorf("pending = %+v", got)
	}
}

func TestGuideXML(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	rec := f.do(t, "GET", "/api/guide.xml", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Programmes []struct {
			Channel string `xml:"channel,attr"`
		} `xml:"programme"`
	}
	if err := xml.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("xml: %v", err)
	}
	if len(doc.Programmes) == 0 {
		t.Error("no programmes in export")
	}
}

func TestImportURLUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	f := newFixtureWithFetcher(t, Options{}, fetcher.New("", time.Second))
	rec := f.do(t, "POST", "/api/imports/guide?url="+url+"/guide.xml", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502: %s", rec.Code, rec.Body)
	}

	upstream = httptest.NewServer(http.NotFoundHandler())
	defer upstream.Close()
	if rec := f.do(t, "POST", "/api/imports/guide?url="+upstream.URL+"/guide.xml", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("upstream 404: status = %d, want 502", rec.Code)
	}
}

func TestQueuedImportRequiresRedis(t *testing.T) {
	f := newFixture(t, Options{QueueImports: true})
	rec := f.do(t, "POST", "/api/imports/guide?url=http://x/epg.xml", "")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("queue without redis: %d", rec.Code)
	}
}

func TestMetricsAndDocs(t *testing.T) {
	f := newFixture(t, Options{Metrics: metrics.New()})
	f.load(t)
	f.do(t, "GET", "/api/guide/bbc1.uk", "")

	rec := f.do(t, "GET", "/metrics", "")
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`guidevault_imports_total{kind="guide",result="ok"} 1`,
		`route="GET /api/guide/{id}"`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	if rec := f.do(t, "GET", "/api/docs/openapi.yaml", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "openapi:") {
		t.Errorf("openapi: %d", rec.Code)
	}
	if rec := f.do(t, "OPTIONS", "/api/guide", ""); rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d", rec.Code)
	}
}
