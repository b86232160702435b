package protocol

// Parameters for a build request.
//
// Root is the project directory containing slipway.yaml; it must be a path
// the daemon can read. Output is resolved against Root when relative.
type BuildRequest struct {
	Root      string   `json:"root"`
	Output    string   `json:"output,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	NoCache   bool     `json:"no_cache,omitempty"`
	NoVerify  bool     `json:"no_verify,omitempty"`
}

// Result of a completed build.
type BuildResult struct {
	BuildID   string   `json:"build_id"`
	Output    string   `json:"output"`
	Platforms []string `json:"platforms"`
}

// Result of a status request.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
}

// Result of a cache purge.
type CachePurgeResult struct {
	Removed int `json:"removed"`
}

// Carried by error responses.
type ErrorResult struct {
	Message string `json:"message"`
}
