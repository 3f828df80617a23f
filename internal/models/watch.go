// -----------------------------------------------------------------------
// Watch - persistent scheduled URL re-check
// -----------------------------------------------------------------------

package models

import "time"

// WatchStatus is the lifecycle state of a watch
type WatchStatus string

const (
	WatchActive WatchStatus = "active"
	WatchPaused WatchStatus = "paused"
	WatchError  WatchStatus = "error"
)

// MinWatchIntervalMinutes is the floor on a watch's check interval
const MinWatchIntervalMinutes = 5

// Watch is a persistent, scheduled re-fetch of a URL that notifies a
// webhook on content change.
type Watch struct {
	ID                   string      `json:"id" badgerhold:"key"`
	AccountID            string      `json:"accountId" badgerhold:"index"`
	URL                  string      `json:"url"`
	WebhookURL           string      `json:"webhookUrl,omitempty"`
	CheckIntervalMinutes int         `json:"checkIntervalMinutes"`
	Selector             string      `json:"selector,omitempty"`
	LastFingerprint      string      `json:"lastFingerprint,omitempty"`
	LastCheckedAt        *time.Time  `json:"lastCheckedAt,omitempty"`
	LastChangedAt        *time.Time  `json:"lastChangedAt,omitempty"`
	ChangeCount          int         `json:"changeCount"`
	Status               WatchStatus `json:"status" badgerhold:"index"`
	ErrorMessage         string      `json:"errorMessage,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// Due reports whether the watch should be checked at the given instant
func (w *Watch) Due(now time.Time) bool {
	if w.Status != WatchActive {
		return false
	}
	if w.LastCheckedAt == nil {
		return true
	}
	interval := time.Duration(w.CheckIntervalMinutes) * time.Minute
	return now.Sub(*w.LastCheckedAt) >= interval
}

// WatchDiff is the paragraph-level diff delivered with a change webhook
type WatchDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}
