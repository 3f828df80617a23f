// -----------------------------------------------------------------------
// Change Tracker - per-URL snapshots with diff on change
// -----------------------------------------------------------------------

package track

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/models"
)

// Tracker persists one snapshot file per URL and computes diffs between
// successive observations. Snapshot writes go through a temp file and
// rename so readers never see a torn file.
type Tracker struct {
	dir    string
	logger arbor.ILogger
}

// NewTracker creates the tracker over a snapshot directory
func NewTracker(dir string, logger arbor.ILogger) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &Tracker{dir: dir, logger: logger}, nil
}

func (t *Tracker) snapshotPath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(t.dir, hex.EncodeToString(sum[:])+".json")
}

// GetSnapshot loads the stored snapshot for a URL. Absent or unreadable
// files are treated as no prior snapshot.
func (t *Tracker) GetSnapshot(url string) (*models.Snapshot, error) {
	data, err := os.ReadFile(t.snapshotPath(url))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		t.logger.Warn().Err(err).Str("url", url).Msg("Snapshot read failed, treating as absent")
		return nil, nil
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.logger.Warn().Err(err).Str("url", url).Msg("Snapshot unmarshal failed, treating as absent")
		return nil, nil
	}
	return &snap, nil
}

func (t *Tracker) writeSnapshot(snap *models.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := t.snapshotPath(snap.URL)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return nil
}

// Track compares the new content against the stored snapshot.
// First observation returns new; identical fingerprints return same with
// only the timestamp refreshed; differing fingerprints compute the LCS
// diff and overwrite the snapshot.
func (t *Tracker) Track(url, content, fingerprint string) (*models.TrackResult, error) {
	prior, _ := t.GetSnapshot(url)
	now := time.Now()

	if prior == nil {
		snap := &models.Snapshot{
			URL:         url,
			Fingerprint: fingerprint,
			Content:     content,
			Timestamp:   now.UnixMilli(),
		}
		if err := t.writeSnapshot(snap); err != nil {
			t.logger.Warn().Err(err).Str("url", url).Msg("Snapshot write failed")
		}
		return &models.TrackResult{ChangeStatus: models.ChangeNew}, nil
	}

	previousAt := time.UnixMilli(prior.Timestamp).UTC().Format(time.RFC3339)

	if prior.Fingerprint == fingerprint {
		prior.Timestamp = now.UnixMilli()
		if err := t.writeSnapshot(prior); err != nil {
			t.logger.Warn().Err(err).Str("url", url).Msg("Snapshot refresh failed")
		}
		return &models.TrackResult{
			ChangeStatus:     models.ChangeSame,
			PreviousScrapeAt: previousAt,
		}, nil
	}

	diff := ComputeDiff(prior.Content, content)

	snap := &models.Snapshot{
		URL:         url,
		Fingerprint: fingerprint,
		Content:     content,
		Timestamp:   now.UnixMilli(),
		Metadata: &models.SnapshotMetadata{
			PreviousFingerprint: prior.Fingerprint,
			PreviousTimestamp:   prior.Timestamp,
		},
	}
	if err := t.writeSnapshot(snap); err != nil {
		t.logger.Warn().Err(err).Str("url", url).Msg("Snapshot write failed")
	}

	return &models.TrackResult{
		ChangeStatus:     models.ChangeChanged,
		PreviousScrapeAt: previousAt,
		Diff:             diff,
	}, nil
}

// ClearSnapshots deletes stored snapshots. An empty pattern deletes all;
// otherwise each snapshot's URL is matched against the regex pattern.
// Returns the number deleted.
func (t *Tracker) ClearSnapshots(urlPattern string) (int, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	var matcher *regexp.Regexp
	if urlPattern != "" {
		matcher, err = regexp.Compile(urlPattern)
		if err != nil {
			return 0, fmt.Errorf("invalid url pattern: %w", err)
		}
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(t.dir, entry.Name())

		if matcher != nil {
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				continue
			}
			var snap models.Snapshot
			if jerr := json.Unmarshal(data, &snap); jerr != nil {
				continue
			}
			if !matcher.MatchString(snap.URL) {
				continue
			}
		}

		if rerr := os.Remove(path); rerr == nil {
			deleted++
		}
	}
	return deleted, nil
}
