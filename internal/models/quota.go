// -----------------------------------------------------------------------
// Quota - weekly/burst usage accounting per API key
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// UsageClass categorizes a request for quota accounting and billing
type UsageClass string

const (
	UsageBasic   UsageClass = "basic"
	UsageStealth UsageClass = "stealth"
	UsageCaptcha UsageClass = "captcha"
	UsageSearch  UsageClass = "search"
)

// WeeklyUsage tracks per-class request counts for one API key in one ISO week
type WeeklyUsage struct {
	Key             string `json:"key" badgerhold:"key"` // apiKeyID + "|" + week
	APIKeyID        string `json:"apiKeyId" badgerhold:"index"`
	Week            string `json:"week"` // ISO year-week, e.g. "2026-W35"
	BasicCount      int    `json:"basicCount"`
	StealthCount    int    `json:"stealthCount"`
	CaptchaCount    int    `json:"captchaCount"`
	SearchCount     int    `json:"searchCount"`
	RolloverCredits int    `json:"rolloverCredits"`
	RolloverSet     bool   `json:"rolloverSet"` // rollover computed once per week per key
}

// Total returns the summed count across all usage classes
func (u *WeeklyUsage) Total() int {
	return u.BasicCount + u.StealthCount + u.CaptchaCount + u.SearchCount
}

// Increment bumps the counter for the given class
func (u *WeeklyUsage) Increment(class UsageClass) {
	switch class {
	case UsageStealth:
		u.StealthCount++
	case UsageCaptcha:
		u.CaptchaCount++
	case UsageSearch:
		u.SearchCount++
	default:
		u.BasicCount++
	}
}

// BurstUsage tracks per-hour request counts for one API key
type BurstUsage struct {
	Key      string `json:"key" badgerhold:"key"` // apiKeyID + "|" + hour
	APIKeyID string `json:"apiKeyId" badgerhold:"index"`
	Hour     string `json:"hour"` // UTC bucket, "2026-08-24T15"
	Count    int    `json:"count"`
}

// ExtraUsage is the pay-as-you-go account state for one user
type ExtraUsage struct {
	UserID        string  `json:"userId" badgerhold:"key"`
	Enabled       bool    `json:"enabled"`
	Balance       float64 `json:"balance"`
	Spent         float64 `json:"spent"`
	SpendingLimit float64 `json:"spendingLimit"`
	AutoReload    bool    `json:"autoReload"`
}

// ExtraUsageLog records one pay-as-you-go charge
type ExtraUsageLog struct {
	ID        string     `json:"id" badgerhold:"key"`
	UserID    string     `json:"userId" badgerhold:"index"`
	APIKeyID  string     `json:"apiKeyId"`
	Class     UsageClass `json:"class"`
	Amount    float64    `json:"amount"`
	URL       string     `json:"url,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// BurstInfo is the hourly-limit view returned with each quota check
type BurstInfo struct {
	Limit     int `json:"limit"`
	Count     int `json:"count"`
	Remaining int `json:"remaining"`
	ResetsIn  int `json:"resetsIn"` // seconds until next hour
}

// WeeklyInfo is the weekly-limit view returned with each quota check
type WeeklyInfo struct {
	Limit          int       `json:"limit"`
	Used           int       `json:"used"`
	Rollover       int       `json:"rollover"`
	TotalAvailable int       `json:"totalAvailable"`
	Remaining      int       `json:"remaining"`
	PercentUsed    float64   `json:"percentUsed"`
	ResetsAt       time.Time `json:"resetsAt"` // next Monday 00:00 UTC
}

// QuotaDecision is the outcome of one quota check
type QuotaDecision struct {
	Allowed     bool       `json:"allowed"`
	HardBlocked bool       `json:"hardBlocked"` // hourly burst exceeded
	SoftLimited bool       `json:"softLimited"` // weekly exhausted, degrade instead of reject
	ExtraCharge float64    `json:"extraCharge"` // pay-as-you-go amount charged
	Burst       BurstInfo  `json:"burst"`
	Weekly      WeeklyInfo `json:"weekly"`
	Extra       ExtraUsage `json:"extra"`
}

// WeekLabel formats a time as an ISO year-week bucket label
func WeekLabel(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// HourLabel formats a time as a UTC hourly bucket label
func HourLabel(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}

// NextWeekStart returns the next Monday 00:00 UTC after t
func NextWeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	daysUntilMonday := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	return day.AddDate(0, 0, daysUntilMonday)
}

// UsageLog records one handled request for auditing
type UsageLog struct {
	ID         string     `json:"id" badgerhold:"key"`
	APIKeyID   string     `json:"apiKeyId" badgerhold:"index"`
	URL        string     `json:"url,omitempty"`
	Endpoint   string     `json:"endpoint"`
	Class      UsageClass `json:"class"`
	Method     string     `json:"method,omitempty"` // fetch method that served it
	StatusCode int        `json:"statusCode"`
	ElapsedMs  int64      `json:"elapsedMs"`
	CreatedAt  time.Time  `json:"createdAt"`
}
