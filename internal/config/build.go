package config

import "log/slog"

// Set with -ldflags at release time:
//
//	go build -ldflags "-X swellwatch/internal/config.version=1.4.0 \
//	    -X swellwatch/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X swellwatch/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/alert-worker
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo reads the linker-injected values. LoadConfig fills
// Config.Build with it.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}

// IsRelease is false for local builds without ldflags.
func (b BuildInfo) IsRelease() bool {
	return b.Version != "" && b.Version != "dev"
}

// LogValue groups the build fields under one log key.
func (b BuildInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.String("build_time", b.BuildTime),
	)
}
