// -----------------------------------------------------------------------
// Fetch and Peel Results
// -----------------------------------------------------------------------

package models

import "time"

// FetchMethod identifies which strategy produced the HTML
type FetchMethod string

const (
	MethodSimple      FetchMethod = "simple"
	MethodBrowser     FetchMethod = "browser"
	MethodStealth     FetchMethod = "stealth"
	MethodCached      FetchMethod = "cached"
	MethodCFWorker    FetchMethod = "cf-worker"
	MethodGoogleCache FetchMethod = "google-cache"
	MethodPeelTLS     FetchMethod = "peeltls"
)

// FetchResult is the raw outcome of one fetch strategy
type FetchResult struct {
	URL               string      `json:"url"`
	HTML              string      `json:"html"`
	StatusCode        int         `json:"statusCode"`
	ContentType       string      `json:"contentType"`
	Method            FetchMethod `json:"method"`
	ChallengeDetected bool        `json:"challengeDetected,omitempty"`
	ChallengeSolved   bool        `json:"challengeSolved,omitempty"` // a blocked tier was bypassed
	Edge              string      `json:"edge,omitempty"`            // serving edge/colo when known
	Screenshot        []byte      `json:"-"`                         // raw PNG when requested
}

// PageMetadata holds page-level metadata extracted from the document
type PageMetadata struct {
	Description string      `json:"description,omitempty"`
	Author      string      `json:"author,omitempty"`
	Published   string      `json:"published,omitempty"`   // ISO 8601
	PublishDate string      `json:"publishDate,omitempty"` // mirrors Published for older clients
	Image       string      `json:"image,omitempty"`
	Canonical   string      `json:"canonical,omitempty"`
	Language    string      `json:"language,omitempty"`
	WordCount   int         `json:"wordCount"`
	FetchedAt   time.Time   `json:"fetchedAt"`
	Method      FetchMethod `json:"method"`
}

// ImageInfo describes one extracted image
type ImageInfo struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// DiffChange is one line of a unified diff
type DiffChange struct {
	Op   string `json:"op"` // "add", "del", "ctx"
	Line string `json:"line"`
}

// DiffResult summarizes the unified diff between two snapshots
type DiffResult struct {
	Text      string       `json:"text"`
	Additions int          `json:"additions"`
	Deletions int          `json:"deletions"`
	Changes   []DiffChange `json:"changes"`
	Truncated bool         `json:"truncated,omitempty"`
}

// ChangeStatus describes the change-tracking outcome for a URL
type ChangeStatus string

const (
	ChangeNew     ChangeStatus = "new"
	ChangeSame    ChangeStatus = "same"
	ChangeChanged ChangeStatus = "changed"
)

// TrackResult is the outcome of one change-tracking call
type TrackResult struct {
	ChangeStatus     ChangeStatus `json:"changeStatus"`
	PreviousScrapeAt string       `json:"previousScrapeAt,omitempty"` // ISO 8601, empty when new
	Diff             *DiffResult  `json:"diff,omitempty"`
}

// PeelResult is the full response for one peeled URL
type PeelResult struct {
	URL             string                 `json:"url"`
	Title           string                 `json:"title"`
	Content         string                 `json:"content"`
	Method          FetchMethod            `json:"method"`
	CacheAgeSec     int                    `json:"cacheAge,omitempty"` // seconds; cached serves only
	Elapsed         int64                  `json:"elapsed"`            // ms
	Tokens          int                    `json:"tokens"`
	Fingerprint     string                 `json:"fingerprint"` // 16 hex chars
	Quality         float64                `json:"quality"`     // [0,1]
	Metadata        PageMetadata           `json:"metadata"`
	Links           []string               `json:"links"` // sorted unique absolute http(s)
	Images          []ImageInfo            `json:"images,omitempty"`
	Screenshot      string                 `json:"screenshot,omitempty"` // base64 PNG
	ContentType     string                 `json:"contentType"`
	StatusCode      int                    `json:"statusCode"`
	Extracted       map[string]interface{} `json:"extracted,omitempty"`
	ChallengeSolved bool                   `json:"challengeSolved,omitempty"` // billed as a captcha solve
	ChangeStatus    ChangeStatus           `json:"changeStatus,omitempty"`
	Diff            *DiffResult            `json:"diff,omitempty"`
	Error           string                 `json:"error,omitempty"` // per-URL error in batch results
}

// SearchResult is one entry returned by the search provider
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// CrawlPage is one page discovered during a crawl
type CrawlPage struct {
	URL    string      `json:"url"`
	Depth  int         `json:"depth"`
	Result *PeelResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SiteMap is the result of a map operation
type SiteMap struct {
	URL   string   `json:"url"`
	Links []string `json:"links"`
	Count int      `json:"count"`
}
