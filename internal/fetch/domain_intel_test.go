package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

func TestRecommendNoOpinionForUnknownHost(t *testing.T) {
	intel := NewDomainIntel(nil, common.GetLogger())
	assert.Equal(t, models.FetchMethod(""), intel.Recommend("https://unknown.example.com/page"))
}

func TestRecommendBrowserWhenSimpleFails(t *testing.T) {
	intel := NewDomainIntel(nil, common.GetLogger())
	url := "https://spa.example.com/app"

	intel.Record(url, models.MethodSimple, false)
	intel.Record(url, models.MethodSimple, false)
	intel.Record(url, models.MethodSimple, true)
	intel.Record(url, models.MethodBrowser, true)

	assert.Equal(t, models.MethodBrowser, intel.Recommend(url))
}

func TestRecommendStealthWhenBrowserNeverSucceeds(t *testing.T) {
	intel := NewDomainIntel(nil, common.GetLogger())
	url := "https://guarded.example.com/"

	intel.Record(url, models.MethodBrowser, false)
	intel.Record(url, models.MethodBrowser, false)
	intel.Record(url, models.MethodStealth, true)

	assert.Equal(t, models.MethodStealth, intel.Recommend(url))
}

func TestNoOpinionWhenSimpleMostlySucceeds(t *testing.T) {
	intel := NewDomainIntel(nil, common.GetLogger())
	url := "https://plain.example.com/"

	intel.Record(url, models.MethodSimple, true)
	intel.Record(url, models.MethodSimple, true)
	intel.Record(url, models.MethodSimple, false)

	assert.Equal(t, models.FetchMethod(""), intel.Recommend(url))
}

func TestRecordSeparatesHosts(t *testing.T) {
	intel := NewDomainIntel(nil, common.GetLogger())

	intel.Record("https://a.example.com/", models.MethodSimple, false)
	intel.Record("https://a.example.com/", models.MethodSimple, false)
	intel.Record("https://a.example.com/", models.MethodBrowser, true)

	assert.Equal(t, models.MethodBrowser, intel.Recommend("https://a.example.com/other"))
	assert.Equal(t, models.FetchMethod(""), intel.Recommend("https://b.example.com/"))
}
