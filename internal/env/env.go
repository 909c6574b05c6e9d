package env

const AppName = "olescan"

// Set at build time via -ldflags.
var (
	Version    = "dev"
	CommitHash = "none"
	BuildTime  = "unknown"
)
