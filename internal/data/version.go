package data

// these are populated at build time using ldflags, e.g.
// -X github.com/antonio-alexander/go-employee-proxy/internal/data.Version=1.0.0
var (
	Version   string
	GitCommit string
	GitBranch string
)
