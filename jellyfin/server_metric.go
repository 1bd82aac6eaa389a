package jellyfin

type ServerMetric struct {
	Users    int
	Items    []ItemMetric
	Sessions SessionSummary

	// FailedEndpoints lists the endpoints whose fetch failed this cycle.
	FailedEndpoints []string
}

type ItemMetric struct {
	Type  string
	Count int64
}
