// -----------------------------------------------------------------------
// Request Options - Immutable per-request configuration
// -----------------------------------------------------------------------

package models

import (
	"strconv"
	"strings"
)

// Format controls the shape of the returned content
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatClean    Format = "clean" // markdown with AI-oriented noise removal
)

// ActionType identifies a single browser automation step
type ActionType string

const (
	ActionClick           ActionType = "click"
	ActionFill            ActionType = "fill"
	ActionPress           ActionType = "press"
	ActionWait            ActionType = "wait"
	ActionScroll          ActionType = "scroll"
	ActionWaitForSelector ActionType = "waitForSelector"
)

// Action is one browser automation step executed in order after page load
type Action struct {
	Type     ActionType `json:"type"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"` // fill text or key name
	Ms       int        `json:"ms,omitempty"`    // wait duration
	Pixels   int        `json:"pixels,omitempty"`
}

// Location carries geo/language hints for the fetch
type Location struct {
	Country   string   `json:"country,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// ExtractSpec requests structured extraction from the fetched page.
// Schema and Prompt route to the LLM extractor; Selectors alone route to
// the CSS extractor; empty spec routes to the heuristic auto-extractor.
type ExtractSpec struct {
	Schema    map[string]interface{} `json:"schema,omitempty"`
	Prompt    string                 `json:"prompt,omitempty"`
	Selectors map[string]string      `json:"selectors,omitempty"`
}

// RequestOptions is the per-request configuration. Treated as immutable once
// built; the quota engine copies it before applying a soft-limit downgrade.
type RequestOptions struct {
	Format      Format   `json:"format,omitempty" validate:"omitempty,oneof=markdown text html clean"`
	Render      bool     `json:"render,omitempty"`  // force browser render
	Stealth     bool     `json:"stealth,omitempty"` // anti-bot mode
	IncludeTags []string `json:"includeTags,omitempty"`
	ExcludeTags []string `json:"excludeTags,omitempty"`
	Selector    string   `json:"selector,omitempty"` // restrict output to one CSS selector
	Exclude     []string `json:"exclude,omitempty"`  // additional exclude selectors

	Images             bool `json:"images,omitempty"`
	Screenshot         bool `json:"screenshot,omitempty"`
	ScreenshotFullPage bool `json:"screenshotFullPage,omitempty"`

	// MaxTokens caps the returned content. nil means unlimited; an explicit
	// zero returns only the truncation notice.
	MaxTokens *int `json:"maxTokens,omitempty" validate:"omitempty,min=0"`
	Wait      int  `json:"wait,omitempty"`    // ms after load; only meaningful with render
	Timeout   int  `json:"timeout,omitempty"` // ms; default 30000

	UserAgent string            `json:"userAgent,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Cookies   []string          `json:"cookies,omitempty"`
	Proxy     string            `json:"proxy,omitempty"`
	Proxies   []string          `json:"proxies,omitempty"`

	ChangeTracking bool `json:"changeTracking,omitempty"`
	Raw            bool `json:"raw,omitempty"` // skip cleaning

	Location *Location    `json:"location,omitempty"`
	Actions  []Action     `json:"actions,omitempty"`
	Extract  *ExtractSpec `json:"extract,omitempty"`
}

// EffectiveFormat returns the requested format, defaulting to markdown
func (o *RequestOptions) EffectiveFormat() Format {
	if o == nil || o.Format == "" {
		return FormatMarkdown
	}
	return o.Format
}

// EffectiveTimeoutMs returns the request budget in milliseconds
func (o *RequestOptions) EffectiveTimeoutMs() int {
	if o == nil || o.Timeout <= 0 {
		return 30000
	}
	return o.Timeout
}

// NeedsBrowser reports whether the request must skip the simple HTTP tier
func (o *RequestOptions) NeedsBrowser() bool {
	if o == nil {
		return false
	}
	return o.Render || o.Stealth || o.Screenshot || len(o.Actions) > 0
}

// Downgraded returns a copy with browser rendering disabled. Used by the
// quota engine when a request is soft-limited.
func (o *RequestOptions) Downgraded() *RequestOptions {
	if o == nil {
		return &RequestOptions{}
	}
	clone := *o
	clone.Render = false
	clone.Stealth = false
	clone.Wait = 0
	clone.Actions = nil
	return &clone
}

// CacheKey builds the canonical cache key for this request. It incorporates
// every option that changes the rendered output and nothing else.
func (o *RequestOptions) CacheKey(url string) string {
	var b strings.Builder
	b.WriteString(url)
	b.WriteString("|f=")
	b.WriteString(string(o.EffectiveFormat()))
	if o == nil {
		return b.String()
	}
	if o.Render {
		b.WriteString("|render")
	}
	if o.Stealth {
		b.WriteString("|stealth")
	}
	if o.Raw {
		b.WriteString("|raw")
	}
	if o.Selector != "" {
		b.WriteString("|sel=")
		b.WriteString(o.Selector)
	}
	if len(o.IncludeTags) > 0 {
		b.WriteString("|inc=")
		b.WriteString(strings.Join(o.IncludeTags, ","))
	}
	if len(o.ExcludeTags) > 0 {
		b.WriteString("|exc=")
		b.WriteString(strings.Join(o.ExcludeTags, ","))
	}
	if len(o.Exclude) > 0 {
		b.WriteString("|x=")
		b.WriteString(strings.Join(o.Exclude, ","))
	}
	if o.Images {
		b.WriteString("|img")
	}
	if o.Location != nil {
		b.WriteString("|loc=")
		b.WriteString(o.Location.Country)
		b.WriteString(":")
		b.WriteString(strings.Join(o.Location.Languages, ","))
	}
	if o.MaxTokens != nil {
		b.WriteString("|max=")
		b.WriteString(strconv.Itoa(*o.MaxTokens))
	}
	return b.String()
}
