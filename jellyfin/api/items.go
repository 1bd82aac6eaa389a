package api

import "encoding/json"

// ItemCountsResponse is the raw body of /Items/Counts, e.g.
// {"MovieCount": 120, "SeriesCount": 40, "EpisodeCount": 812}.
// Values are kept raw so a single odd value does not fail the whole body.
type ItemCountsResponse map[string]json.RawMessage

// ItemCounts maps a media type name to its number of items.
type ItemCounts map[string]int64
