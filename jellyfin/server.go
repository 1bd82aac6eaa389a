package jellyfin

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/frebib/jellyfin-exporter/config"
	"github.com/frebib/jellyfin-exporter/jellyfin/api"
	"github.com/frebib/jellyfin-exporter/version"
)

type Server struct {
	BaseURL    string
	httpClient *http.Client
	headers    map[string]string
}

const UsersURI = "%s/Users"
const ItemCountsURI = "%s/Items/Counts"
const SessionsURI = "%s/Sessions?ActiveWithinSeconds=%d"

const TokenHeader = "X-Emby-Token"

var DefaultHeaders = map[string]string{
	"User-Agent": fmt.Sprintf("jellyfin_exporter/%s", version.Version),
	"Accept":     "application/json",
}

// NewServer builds a Server talking to c.BaseURL. Every request is bounded by
// timeout.
func NewServer(c config.JellyfinServerConfig, timeout time.Duration) *Server {
	headers := maps.Clone(DefaultHeaders)
	headers[TokenHeader] = c.Token

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: c.SkipVerify()} //nolint:gosec // user-configured

	return &Server{
		BaseURL: c.BaseURL,
		headers: headers,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

func (s *Server) GetUsers(ctx context.Context) ([]api.User, error) {
	users, err := httpRequest[[]api.User](ctx, s.httpClient, http.MethodGet, fmt.Sprintf(UsersURI, s.BaseURL), s.headers)
	if err != nil {
		return nil, err
	}
	return *users, nil
}

func (s *Server) GetItemCounts(ctx context.Context) (api.ItemCountsResponse, error) {
	counts, err := httpRequest[api.ItemCountsResponse](ctx, s.httpClient, http.MethodGet, fmt.Sprintf(ItemCountsURI, s.BaseURL), s.headers)
	if err != nil {
		return nil, err
	}
	return *counts, nil
}

// GetSessions returns the sessions active within the last activeWithin
// seconds, one undecoded element per session so that callers can skip
// malformed entries individually.
func (s *Server) GetSessions(ctx context.Context, activeWithin int) ([]json.RawMessage, error) {
	sessions, err := httpRequest[[]json.RawMessage](ctx, s.httpClient, http.MethodGet, fmt.Sprintf(SessionsURI, s.BaseURL, activeWithin), s.headers)
	if err != nil {
		return nil, err
	}
	return *sessions, nil
}
