package api

import (
	"encoding/json"
	"strconv"
)

// Session is one entry of /Sessions. UserName and PlayState.IsPaused are
// pointers so that a record missing either can be told apart and skipped.
type Session struct {
	ID              string           `json:"Id"`
	UserName        *string          `json:"UserName"`
	Client          string           `json:"Client"`
	DeviceName      string           `json:"DeviceName"`
	PlayState       *PlayState       `json:"PlayState"`
	NowPlayingItem  *NowPlayingItem  `json:"NowPlayingItem"`
	TranscodingInfo *TranscodingInfo `json:"TranscodingInfo"`
}

// User returns the session user name, or "" when it is absent.
func (s Session) User() string {
	if s.UserName == nil {
		return ""
	}
	return *s.UserName
}

type PlayState struct {
	IsPaused   *bool  `json:"IsPaused"`
	PlayMethod string `json:"PlayMethod"`
}

type NowPlayingItem struct {
	ID           string        `json:"Id"`
	Name         string        `json:"Name"`
	Type         string        `json:"Type"`
	MediaStreams []MediaStream `json:"MediaStreams"`
}

type MediaStream struct {
	Type    string          `json:"Type"`
	Codec   string          `json:"Codec"`
	BitRate json.RawMessage `json:"BitRate"`
}

// IntBitRate returns the stream bitrate if it is present and encoded as a
// JSON integer. Floats, strings, booleans and null are reported as absent.
func (s MediaStream) IntBitRate() (int64, bool) {
	if len(s.BitRate) == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(string(s.BitRate), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type TranscodingInfo struct {
	IsVideoDirect bool `json:"IsVideoDirect"`
	IsAudioDirect bool `json:"IsAudioDirect"`
	// TranscodeReasons is nil when the server sent null or omitted it.
	TranscodeReasons []string `json:"TranscodeReasons"`
}
