package l4follow

// Config holds the association and following knobs.
type Config struct {
	RoadSigmas         float64 // road half-width and z gate in standard deviations
	ExpectedSigmaY2    float64 // nominal cluster y variance used for the road (cm²)
	MaxChi2            float64 // ceiling on the predicted χ² of an accepted cluster
	SkipBudget         int     // consecutive gaps tolerated before finalizing
	MinClusterFraction float64 // accepted tracks need this fraction of traversed rows
	MinClusters        int     // and at least this many clusters
	InnermostRow       int     // last inner-group row followed
	RefitCovScale      float64 // covariance inflation before the refit pass
	Timing             bool    // integrate path length and time of flight
}

// DefaultConfig returns the standard following parameters.
func DefaultConfig() Config {
	return Config{
		RoadSigmas:         4,
		ExpectedSigmaY2:    0.01,
		MaxChi2:            12.25,
		SkipBudget:         5,
		MinClusterFraction: 0.4,
		MinClusters:        10,
		InnermostRow:       0,
		RefitCovScale:      100,
	}
}
