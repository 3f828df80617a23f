// -----------------------------------------------------------------------
// Content Snapshot - per-URL change-tracking state on disk
// -----------------------------------------------------------------------

package models

// SnapshotMetadata carries provenance for the current snapshot
type SnapshotMetadata struct {
	PreviousFingerprint string `json:"previousFingerprint,omitempty"`
	PreviousTimestamp   int64  `json:"previousTimestamp,omitempty"` // ms since epoch
}

// Snapshot is one persisted observation of a URL's content. Stored as JSON
// at <snapshotsDir>/<sha256(url)>.json and overwritten on every fetch.
type Snapshot struct {
	URL         string            `json:"url"`
	Fingerprint string            `json:"fingerprint"` // 64 hex chars
	Content     string            `json:"content"`
	Timestamp   int64             `json:"timestamp"` // ms since epoch
	Metadata    *SnapshotMetadata `json:"metadata,omitempty"`
}

// DomainStats tracks per-host fetch outcomes used to pick a starting method
type DomainStats struct {
	Host      string         `json:"host" badgerhold:"key"`
	Successes map[string]int `json:"successes"` // by fetch method
	Failures  map[string]int `json:"failures"`  // by fetch method
	LastSeen  int64          `json:"lastSeen"`  // ms since epoch
}
