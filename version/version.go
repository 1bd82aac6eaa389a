package version

// Version is overridden at build time with
// -ldflags "-X github.com/frebib/jellyfin-exporter/version.Version=..."
var Version = "dev"
