// pantry/version/version.go
package version

import (
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/dalemusser/mild/httputil"
	"github.com/go-chi/chi/v5"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/dalemusser/mild/pantry/version.Version=1.0.0"
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info is the body served at /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Get returns the build info. Commit and BuildTime fall back to the VCS
// stamps the toolchain embeds when they were not set with -ldflags.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "":
				info.BuildTime = s.Value
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}

// String is a one-line summary for logs, e.g. "1.2.3 (abc123, built ...)".
func String() string {
	i := Get()
	if i.Version == "dev" {
		return "dev"
	}
	return i.Version + " (" + i.Commit + ", built " + i.BuildTime + ")"
}

// Mount serves Get() as JSON at GET /version.
func Mount(r chi.Router) {
	info := Get()
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, nil, http.StatusOK, info)
	})
}
