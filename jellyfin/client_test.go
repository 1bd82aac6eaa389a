package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frebib/jellyfin-exporter/config"
)

const testToken = "test-token"

type route struct {
	status      int
	contentType string
	body        string
}

func jsonRoute(body string) route {
	return route{status: http.StatusOK, contentType: "application/json; charset=utf-8", body: body}
}

func newTestClient(t *testing.T, routes map[string]route) *JellyfinClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(TokenHeader); got != testToken {
			t.Errorf("%s = %q, want %q", TokenHeader, got, testToken)
		}
		rt, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", rt.contentType)
		w.WriteHeader(rt.status)
		_, _ = w.Write([]byte(rt.body))
	}))
	t.Cleanup(srv.Close)

	s := NewServer(config.JellyfinServerConfig{BaseURL: srv.URL, Token: testToken}, 2*time.Second)
	return NewJellyfinClient(s, 30, false, discardLogger())
}

func TestFetchUsers(t *testing.T) {
	c := newTestClient(t, map[string]route{
		"/Users": jsonRoute(`[{"Id": "1", "Name": "alice"}, {"Id": "2", "Name": "bob"}]`),
	})

	users := c.FetchUsers(context.Background())
	if len(users) != 2 {
		t.Fatalf("len(FetchUsers) = %d, want 2", len(users))
	}
	if users[0].Name != "alice" {
		t.Errorf("users[0].Name = %q, want alice", users[0].Name)
	}
}

func TestFetchFailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name  string
		route route
	}{
		{name: "server error", route: route{status: http.StatusInternalServerError, contentType: "text/plain", body: "boom"}},
		{name: "unauthorized", route: route{status: http.StatusUnauthorized, contentType: "application/json", body: `{}`}},
		{name: "wrong content type", route: route{status: http.StatusOK, contentType: "text/html", body: "<html></html>"}},
		{name: "truncated json", route: jsonRoute(`[{"Id": "1"`)},
		{name: "wrong shape", route: jsonRoute(`{"Items": []}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, map[string]route{
				"/Users":        tt.route,
				"/Items/Counts": tt.route,
				"/Sessions":     tt.route,
			})
			ctx := context.Background()

			if users := c.FetchUsers(ctx); users == nil || len(users) != 0 {
				t.Errorf("FetchUsers = %v, want empty non-nil", users)
			}
			if sessions := c.FetchSessions(ctx, 30); sessions == nil || len(sessions) != 0 {
				t.Errorf("FetchSessions = %v, want empty non-nil", sessions)
			}
			if counts := c.FetchItemCounts(ctx); counts == nil || len(counts) != 0 {
				t.Errorf("FetchItemCounts = %v, want empty non-nil", counts)
			}
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewServer(config.JellyfinServerConfig{BaseURL: url, Token: testToken}, time.Second)
	c := NewJellyfinClient(s, 30, false, discardLogger())

	m := c.GetServerMetrics(context.Background())
	if m.Users != 0 || len(m.Items) != 0 || m.Sessions.Active != 0 {
		t.Errorf("GetServerMetrics = %+v, want zero values", m)
	}
	if len(m.FailedEndpoints) != 3 {
		t.Errorf("FailedEndpoints = %v, want all three", m.FailedEndpoints)
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	s := NewServer(config.JellyfinServerConfig{BaseURL: srv.URL, Token: testToken}, 100*time.Millisecond)
	c := NewJellyfinClient(s, 30, false, discardLogger())

	start := time.Now()
	users := c.FetchUsers(context.Background())
	if len(users) != 0 {
		t.Errorf("FetchUsers = %v, want empty", users)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("FetchUsers took %v, want it bounded by the timeout", elapsed)
	}
}

func TestFetchItemCounts(t *testing.T) {
	c := newTestClient(t, map[string]route{
		"/Items/Counts": jsonRoute(`{"Movie": 120, "Series": 40, "Broken": "n/a", "Partial": 1.5}`),
	})

	counts := c.FetchItemCounts(context.Background())
	if len(counts) != 2 {
		t.Fatalf("FetchItemCounts = %v, want 2 entries", counts)
	}
	if counts["Movie"] != 120 || counts["Series"] != 40 {
		t.Errorf("FetchItemCounts = %v, want Movie=120 Series=40", counts)
	}
}

func TestFetchSessionsSkipsMalformed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("ActiveWithinSeconds")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"UserName": "a", "PlayState": {"IsPaused": false}, "NowPlayingItem": {"MediaStreams": []}},
			{"UserName": 42, "PlayState": {"IsPaused": false}},
			"not a session",
			{"UserName": "b", "PlayState": {"IsPaused": "no"}},
			{"UserName": "c", "PlayState": {"IsPaused": true}}
		]`))
	}))
	t.Cleanup(srv.Close)

	s := NewServer(config.JellyfinServerConfig{BaseURL: srv.URL, Token: testToken}, time.Second)
	c := NewJellyfinClient(s, 30, false, discardLogger())

	sessions := c.FetchSessions(context.Background(), 45)
	if gotQuery != "45" {
		t.Errorf("ActiveWithinSeconds = %q, want 45", gotQuery)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(FetchSessions) = %d, want 2", len(sessions))
	}
	if sessions[0].User() != "a" || sessions[1].User() != "c" {
		t.Errorf("sessions = %q, %q, want a, c", sessions[0].User(), sessions[1].User())
	}
}

func TestGetServerMetrics(t *testing.T) {
	c := newTestClient(t, map[string]route{
		"/Users":        jsonRoute(`[{"Id": "1"}, {"Id": "2"}, {"Id": "3"}]`),
		"/Items/Counts": jsonRoute(`{"SeriesCount": 40, "MovieCount": 120}`),
		"/Sessions": jsonRoute(`[
			{"UserName": "a", "PlayState": {"IsPaused": false}, "NowPlayingItem": {"MediaStreams": [{"BitRate": 5000}, {"BitRate": 320}]},
			 "TranscodingInfo": {"IsVideoDirect": false, "TranscodeReasons": ["VideoCodecNotSupported"]}},
			{"UserName": "a", "PlayState": {"IsPaused": false}, "NowPlayingItem": {"MediaStreams": [{"BitRate": 1000}]},
			 "TranscodingInfo": {"IsVideoDirect": true, "TranscodeReasons": null}},
			{"UserName": "b", "PlayState": {"IsPaused": true}, "NowPlayingItem": {"MediaStreams": [{"BitRate": 9999}]}},
			{"UserName": "c", "PlayState": {"IsPaused": false}}
		]`),
	})

	m := c.GetServerMetrics(context.Background())

	if m.Users != 3 {
		t.Errorf("Users = %d, want 3", m.Users)
	}
	if len(m.Items) != 2 || m.Items[0] != (ItemMetric{Type: "MovieCount", Count: 120}) || m.Items[1] != (ItemMetric{Type: "SeriesCount", Count: 40}) {
		t.Errorf("Items = %v, want sorted MovieCount=120 SeriesCount=40", m.Items)
	}
	if m.Sessions.ActiveByUser["a"] != 2 || len(m.Sessions.ActiveByUser) != 1 {
		t.Errorf("ActiveByUser = %v, want map[a:2]", m.Sessions.ActiveByUser)
	}
	if m.Sessions.Bandwidth != 6320 {
		t.Errorf("Bandwidth = %v, want 6320", m.Sessions.Bandwidth)
	}
	if m.Sessions.Direct != 1 || m.Sessions.Transcoded != 1 {
		t.Errorf("Direct/Transcoded = %d/%d, want 1/1", m.Sessions.Direct, m.Sessions.Transcoded)
	}
	if len(m.FailedEndpoints) != 0 {
		t.Errorf("FailedEndpoints = %v, want none", m.FailedEndpoints)
	}
}
