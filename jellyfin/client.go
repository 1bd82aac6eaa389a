package jellyfin

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/frebib/jellyfin-exporter/jellyfin/api"
)

const (
	EndpointUsers      = "users"
	EndpointItemCounts = "item_counts"
	EndpointSessions   = "sessions"
)

// JellyfinClient fetches data from a Jellyfin server on a best-effort basis:
// a failed request is logged and reported as empty data.
type JellyfinClient struct {
	Logger     *log.Entry
	server     *Server
	aggregator *SessionAggregator

	// activeWithin is passed as ActiveWithinSeconds when listing sessions.
	activeWithin int
}

func NewJellyfinClient(s *Server, activeWithin int, untranscodedAsDirect bool, l *log.Entry) *JellyfinClient {
	return &JellyfinClient{
		Logger:       l,
		server:       s,
		activeWithin: activeWithin,
		aggregator: &SessionAggregator{
			Logger:               l,
			UntranscodedAsDirect: untranscodedAsDirect,
		},
	}
}

// FetchUsers returns every user account, or an empty list on failure.
func (c *JellyfinClient) FetchUsers(ctx context.Context) []api.User {
	users, _ := c.fetchUsers(ctx)
	return users
}

// FetchItemCounts returns the number of items per media type, or an empty
// mapping on failure.
func (c *JellyfinClient) FetchItemCounts(ctx context.Context) api.ItemCounts {
	counts, _ := c.fetchItemCounts(ctx)
	return counts
}

// FetchSessions returns the sessions active within the last activeWithin
// seconds, or an empty list on failure. Elements that cannot be decoded are
// dropped.
func (c *JellyfinClient) FetchSessions(ctx context.Context, activeWithin int) []api.Session {
	sessions, _ := c.fetchSessions(ctx, activeWithin)
	return sessions
}

// GetServerMetrics fetches users, item counts and sessions one after the
// other and derives the exported figures from them.
func (c *JellyfinClient) GetServerMetrics(ctx context.Context) ServerMetric {
	var data ServerMetric

	users, err := c.fetchUsers(ctx)
	if err != nil {
		data.FailedEndpoints = append(data.FailedEndpoints, EndpointUsers)
	}
	data.Users = len(users)

	counts, err := c.fetchItemCounts(ctx)
	if err != nil {
		data.FailedEndpoints = append(data.FailedEndpoints, EndpointItemCounts)
	}
	data.Items = make([]ItemMetric, 0, len(counts))
	for t, n := range counts {
		data.Items = append(data.Items, ItemMetric{Type: t, Count: n})
	}
	sort.Slice(data.Items, func(i, j int) bool { return data.Items[i].Type < data.Items[j].Type })

	sessions, err := c.fetchSessions(ctx, c.activeWithin)
	if err != nil {
		data.FailedEndpoints = append(data.FailedEndpoints, EndpointSessions)
	}
	data.Sessions = c.aggregator.Summarize(sessions)

	c.Logger.Trace(data)
	return data
}

func (c *JellyfinClient) fetchUsers(ctx context.Context) ([]api.User, error) {
	users, err := c.server.GetUsers(ctx)
	if err != nil {
		c.Logger.WithError(err).WithField("endpoint", EndpointUsers).Error("Could not get users")
		return []api.User{}, err
	}
	if users == nil {
		users = []api.User{}
	}
	return users, nil
}

func (c *JellyfinClient) fetchItemCounts(ctx context.Context) (api.ItemCounts, error) {
	counts := make(api.ItemCounts)

	resp, err := c.server.GetItemCounts(ctx)
	if err != nil {
		c.Logger.WithError(err).WithField("endpoint", EndpointItemCounts).Error("Could not get item counts")
		return counts, err
	}

	for t, raw := range resp {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			c.Logger.WithFields(log.Fields{"type": t, "value": string(raw)}).
				Warn("Skipping non-integer item count")
			continue
		}
		counts[t] = n
	}
	return counts, nil
}

func (c *JellyfinClient) fetchSessions(ctx context.Context, activeWithin int) ([]api.Session, error) {
	raw, err := c.server.GetSessions(ctx, activeWithin)
	if err != nil {
		c.Logger.WithError(err).WithField("endpoint", EndpointSessions).Error("Could not get sessions")
		return []api.Session{}, err
	}

	sessions := make([]api.Session, 0, len(raw))
	for i, r := range raw {
		var s api.Session
		if err := json.Unmarshal(r, &s); err != nil {
			c.Logger.WithError(err).WithField("index", i).Warn("Skipping malformed session")
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
