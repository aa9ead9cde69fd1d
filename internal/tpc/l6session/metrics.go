package l6session

// Metrics summarises one session run.
type Metrics struct {
	Clusters        int `json:"clusters"`
	ClaimedClusters int `json:"claimed_clusters"`

	Seeds        int `json:"seeds"`
	SeedsDropped int `json:"seeds_dropped"` // anchor already claimed
	Followed     int `json:"followed"`
	Refollowed   int `json:"refollowed"` // speculative results invalidated by an earlier claim

	Accepted             int `json:"accepted"`
	RejectedGeometry     int `json:"rejected_geometry"`
	RejectedInsufficient int `json:"rejected_insufficient"`
	EarlyStops           int `json:"early_stops"`
	RefitFailures        int `json:"refit_failures"`
	Fakes                int `json:"fakes"`

	Workers int `json:"workers"`
}

// Efficiency returns the fraction of followed seeds that were accepted.
func (m Metrics) Efficiency() float64 {
	if m.Followed == 0 {
		return 0
	}
	return float64(m.Accepted) / float64(m.Followed)
}
