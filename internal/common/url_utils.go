package common

import (
	"fmt"
	"net/url"
	"strings"
)

const maxURLLength = 2048

// NormalizeURL validates a target URL and fills in a missing scheme.
// Only http and https targets are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	if len(raw) > maxURLLength {
		return "", fmt.Errorf("url exceeds %d characters", maxURLLength)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: only http and https are allowed", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url has no host")
	}
	return parsed.String(), nil
}

// HostOf returns the lowercased host (without port) of a URL, or "" when the
// URL does not parse.
func HostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
