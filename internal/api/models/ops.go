package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Readiness reports whether the service can answer route requests.
type Readiness struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Graph     GraphInfo        `json:"graph"`
	Providers []ProviderStatus `json:"providers"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	Trips               int          `json:"trips"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	StateChangedAt      *Timestamp   `json:"stateChangedAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}

// GraphInfo describes the loaded road graph.
type GraphInfo struct {
	Nodes             int        `json:"nodes"`
	Edges             int        `json:"edges"`
	SafeEdges         int        `json:"safeEdges"`
	PrecomputedLevels []int      `json:"precomputedLevels"`
	WeightVersion     string     `json:"weightVersion"`
	Source            string     `json:"source,omitempty"`
	ServiceArea       [4]float64 `json:"serviceArea"`
}

// WeightFactors is the body of GET /debug/weight-factors.
type WeightFactors struct {
	Version          string        `json:"version"`
	RoadClassPenalty bool          `json:"roadClassPenalty"`
	Levels           []WeightLevel `json:"levels"`
}

// WeightLevel are the factors of one safety level.
type WeightLevel struct {
	Level          int     `json:"level"`
	SafeFactor     float64 `json:"safeFactor"`
	NormalFactor   float64 `json:"normalFactor"`
	Safe100mCost   float64 `json:"safe100mCost"`
	Normal100mCost float64 `json:"normal100mCost"`
}

// CacheInfo describes the plan cache.
type CacheInfo struct {
	TotalEntries int    `json:"totalEntries"`
	FreshEntries int    `json:"freshEntries"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
}

// DebugConfig is the body of GET /debug/config. Secrets are reported as set
// or unset only.
type DebugConfig struct {
	GraphSource       string   `json:"graphSource"`
	InstructionSource string   `json:"instructionSource"`
	MapboxTokenSet    bool     `json:"mapboxTokenSet"`
	VoiceLanguage     string   `json:"voiceLanguage"`
	Operators         []string `json:"operators"`
	CacheTTLSeconds   float64  `json:"cacheTtlSeconds"`
}

// TestRoute is the body of GET /debug/test-route.
type TestRoute struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Safety        int     `json:"safety"`
	Distance      float64 `json:"distance"`
	Duration      float64 `json:"duration"`
	SafetyScore   float64 `json:"safetyScore"`
	SafeRoadRatio float64 `json:"safeRoadRatio"`
	NodeCount     int     `json:"nodeCount"`
	Polyline      string  `json:"polyline"`
	Error         *string `json:"error,omitempty"`
}
