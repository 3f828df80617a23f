package common

// Version is the application version, overridable at build time via
// -ldflags "-X github.com/webpeel/webpeel/internal/common.Version=x.y.z"
var Version = "0.9.0"

// GetVersion returns the application version string
func GetVersion() string {
	return Version
}
