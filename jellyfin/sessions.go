package jellyfin

import (
	log "github.com/sirupsen/logrus"

	"github.com/frebib/jellyfin-exporter/jellyfin/api"
)

// SessionAggregator derives the exported session figures from a session list.
type SessionAggregator struct {
	Logger *log.Entry

	// UntranscodedAsDirect counts playing sessions that carry no
	// TranscodingInfo as direct streams instead of transcoded ones.
	UntranscodedAsDirect bool
}

// ActiveSessions keeps the sessions that are playing something and are not
// paused. Sessions without a UserName or a PlayState.IsPaused are malformed
// and are skipped.
func (a *SessionAggregator) ActiveSessions(sessions []api.Session) []api.Session {
	active := make([]api.Session, 0, len(sessions))
	for i, s := range sessions {
		if reason := malformed(s); reason != "" {
			a.Logger.WithFields(log.Fields{"index": i, "session": s.ID}).
				Warnf("Skipping session without %s", reason)
			continue
		}
		if !*s.PlayState.IsPaused && s.NowPlayingItem != nil {
			active = append(active, s)
		}
	}
	return active
}

func malformed(s api.Session) string {
	switch {
	case s.UserName == nil:
		return "UserName"
	case s.PlayState == nil:
		return "PlayState"
	case s.PlayState.IsPaused == nil:
		return "PlayState.IsPaused"
	}
	return ""
}

// ActiveCountsByUser counts active sessions per user name. Users without an
// active session are absent from the result.
func ActiveCountsByUser(active []api.Session) map[string]int {
	counts := make(map[string]int)
	for _, s := range active {
		counts[s.User()]++
	}
	return counts
}

// TotalBitrate sums the integer bitrates of every media stream of the given
// sessions. Streams without one are ignored.
func TotalBitrate(active []api.Session) float64 {
	var total float64
	for _, s := range active {
		if s.NowPlayingItem == nil {
			continue
		}
		for _, stream := range s.NowPlayingItem.MediaStreams {
			if br, ok := stream.IntBitRate(); ok {
				total += float64(br)
			}
		}
	}
	return total
}

// StreamTypeSplit classifies each session as direct or transcoded. A session
// is direct when its TranscodingInfo reports direct video or no transcode
// reasons at all.
func (a *SessionAggregator) StreamTypeSplit(active []api.Session) (direct, transcoded int) {
	for _, s := range active {
		if isDirect(s, a.UntranscodedAsDirect) {
			direct++
		} else {
			transcoded++
		}
	}
	return direct, transcoded
}

func isDirect(s api.Session, untranscodedAsDirect bool) bool {
	ti := s.TranscodingInfo
	if ti == nil {
		return untranscodedAsDirect
	}
	return ti.IsVideoDirect || ti.TranscodeReasons == nil
}

// SessionSummary is everything exported about sessions in one cycle.
type SessionSummary struct {
	Active       int
	ActiveByUser map[string]int
	Bandwidth    float64
	Direct       int
	Transcoded   int
}

// Summarize filters the active sessions once and runs every derivation on
// the result.
func (a *SessionAggregator) Summarize(sessions []api.Session) SessionSummary {
	active := a.ActiveSessions(sessions)
	direct, transcoded := a.StreamTypeSplit(active)

	return SessionSummary{
		Active:       len(active),
		ActiveByUser: ActiveCountsByUser(active),
		Bandwidth:    TotalBitrate(active),
		Direct:       direct,
		Transcoded:   transcoded,
	}
}
