package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version of the application, overridden by ldflags on release builds.
	Version = "0.2.0-dev"

	// Revision is the VCS commit the binary was built from.
	Revision = "HEAD"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}

	if Version == "" || strings.HasSuffix(Version, "-dev") {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			Version = strings.TrimPrefix(v, "v")
		}
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" && Revision == "HEAD" {
			Revision = s.Value
		}
	}
}

// Detailed returns a human readable version string for --version output.
func Detailed() string {
	rev := Revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return fmt.Sprintf("%s (%s; %s; %s/%s)", Version, rev, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
