package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/extract"
	"github.com/webpeel/webpeel/internal/models"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(t.TempDir(), common.GetLogger())
	require.NoError(t, err)
	return tracker
}

func TestTrackFirstObservationIsNew(t *testing.T) {
	tracker := newTestTracker(t)
	content := "Line 1\nLine 2"

	result, err := tracker.Track("https://example.com/a", content, extract.FullFingerprint(content))
	require.NoError(t, err)

	assert.Equal(t, models.ChangeNew, result.ChangeStatus)
	assert.Empty(t, result.PreviousScrapeAt)
	assert.Nil(t, result.Diff)

	snap, err := tracker.GetSnapshot("https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, content, snap.Content)
	assert.Len(t, snap.Fingerprint, 64)
}

func TestTrackSameFingerprintIsSame(t *testing.T) {
	tracker := newTestTracker(t)
	content := "stable content"
	fp := extract.FullFingerprint(content)

	_, err := tracker.Track("https://example.com/b", content, fp)
	require.NoError(t, err)

	result, err := tracker.Track("https://example.com/b", content, fp)
	require.NoError(t, err)

	assert.Equal(t, models.ChangeSame, result.ChangeStatus)
	assert.NotEmpty(t, result.PreviousScrapeAt)
	assert.Nil(t, result.Diff)
}

func TestTrackChangedContentProducesDiff(t *testing.T) {
	tracker := newTestTracker(t)
	url := "https://example.com/c"
	oldContent := "Line 1\nLine 2\nLine 3"
	newContent := "Line 1\nLine 2 modified\nLine 3\nLine 4 added"

	_, err := tracker.Track(url, oldContent, extract.FullFingerprint(oldContent))
	require.NoError(t, err)

	result, err := tracker.Track(url, newContent, extract.FullFingerprint(newContent))
	require.NoError(t, err)

	assert.Equal(t, models.ChangeChanged, result.ChangeStatus)
	require.NotNil(t, result.Diff)
	assert.GreaterOrEqual(t, result.Diff.Additions, 1)
	assert.GreaterOrEqual(t, result.Diff.Deletions, 1)

	// The new snapshot records provenance of the replaced one
	snap, err := tracker.GetSnapshot(url)
	require.NoError(t, err)
	require.NotNil(t, snap.Metadata)
	assert.Equal(t, extract.FullFingerprint(oldContent), snap.Metadata.PreviousFingerprint)
}

func TestGetSnapshotAbsentURL(t *testing.T) {
	tracker := newTestTracker(t)
	snap, err := tracker.GetSnapshot("https://never-seen.example.com/")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestClearSnapshotsAll(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.Track("https://a.example.com/", "content a", extract.FullFingerprint("content a"))
	tracker.Track("https://b.example.com/", "content b", extract.FullFingerprint("content b"))

	deleted, err := tracker.ClearSnapshots("")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	snap, _ := tracker.GetSnapshot("https://a.example.com/")
	assert.Nil(t, snap)
}

func TestClearSnapshotsByPattern(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.Track("https://keep.example.com/x", "keep", extract.FullFingerprint("keep"))
	tracker.Track("https://drop.example.com/y", "drop", extract.FullFingerprint("drop"))

	deleted, err := tracker.ClearSnapshots(`drop\.example\.com`)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	kept, _ := tracker.GetSnapshot("https://keep.example.com/x")
	assert.NotNil(t, kept)
	dropped, _ := tracker.GetSnapshot("https://drop.example.com/y")
	assert.Nil(t, dropped)
}

func TestClearSnapshotsInvalidPattern(t *testing.T) {
	tracker := newTestTracker(t)
	_, err := tracker.ClearSnapshots("([")
	assert.Error(t, err)
}
