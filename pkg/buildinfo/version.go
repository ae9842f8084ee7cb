// Package buildinfo exposes the version stamped into polargraph at build time.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/polargraph/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/polargraph/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/polargraph/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/polargraph
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git SHA of the build.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

// Info is the JSON form served by the health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build information.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String returns the build information on one line.
func String() string {
	return fmt.Sprintf("polargraph %s (%s, built %s)", Version, Commit, Date)
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt:  %s\n", Version, Commit, Date)
}
