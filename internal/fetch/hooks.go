package fetch

import (
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

// DefaultHooks wires domain intelligence and the race switch into the
// escalation engine.
type DefaultHooks struct {
	intel  *DomainIntel
	config *common.FetchConfig
}

// NewDefaultHooks creates the standard hook set
func NewDefaultHooks(intel *DomainIntel, config *common.FetchConfig) *DefaultHooks {
	return &DefaultHooks{intel: intel, config: config}
}

// RecommendMethod delegates to domain intelligence
func (h *DefaultHooks) RecommendMethod(url string) models.FetchMethod {
	return h.intel.Recommend(url)
}

// RecordOutcome delegates to domain intelligence
func (h *DefaultHooks) RecordOutcome(url string, method models.FetchMethod, success bool) {
	h.intel.Record(url, method, success)
}

// RaceEnabled reports whether the simple/browser race is configured on.
// Requests that force a render tier never race.
func (h *DefaultHooks) RaceEnabled(opts *models.RequestOptions) bool {
	if opts != nil && opts.NeedsBrowser() {
		return false
	}
	return h.config.RaceEnabled
}
