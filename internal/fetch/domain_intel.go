// -----------------------------------------------------------------------
// Domain Intelligence - per-host fetch outcome counters
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

type hostCounters struct {
	mu        sync.Mutex
	successes map[models.FetchMethod]int
	failures  map[models.FetchMethod]int
	lastSeen  time.Time
}

// DomainIntel records per-host success and failure of each fetch method
// and recommends the starting method for new requests. Counters live in
// memory; the backing store only warms them across restarts.
type DomainIntel struct {
	mu      sync.RWMutex
	hosts   map[string]*hostCounters
	storage interfaces.DomainStatsStorage
	logger  arbor.ILogger
}

// NewDomainIntel creates the intelligence service, warming counters from
// the store when one is provided.
func NewDomainIntel(storage interfaces.DomainStatsStorage, logger arbor.ILogger) *DomainIntel {
	d := &DomainIntel{
		hosts:   make(map[string]*hostCounters),
		storage: storage,
		logger:  logger,
	}
	if storage != nil {
		if all, err := storage.GetAllDomainStats(context.Background()); err == nil {
			for _, s := range all {
				d.hosts[s.Host] = fromStats(s)
			}
			logger.Debug().Int("hosts", len(all)).Msg("Domain intelligence warmed from store")
		}
	}
	return d
}

func fromStats(s *models.DomainStats) *hostCounters {
	hc := &hostCounters{
		successes: make(map[models.FetchMethod]int),
		failures:  make(map[models.FetchMethod]int),
		lastSeen:  time.UnixMilli(s.LastSeen),
	}
	for m, n := range s.Successes {
		hc.successes[models.FetchMethod(m)] = n
	}
	for m, n := range s.Failures {
		hc.failures[models.FetchMethod(m)] = n
	}
	return hc
}

func (d *DomainIntel) counters(host string) *hostCounters {
	d.mu.RLock()
	hc, ok := d.hosts[host]
	d.mu.RUnlock()
	if ok {
		return hc
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if hc, ok = d.hosts[host]; ok {
		return hc
	}
	hc = &hostCounters{
		successes: make(map[models.FetchMethod]int),
		failures:  make(map[models.FetchMethod]int),
	}
	d.hosts[host] = hc
	return hc
}

// Record notes one fetch outcome for the URL's host
func (d *DomainIntel) Record(url string, method models.FetchMethod, success bool) {
	host := common.HostOf(url)
	if host == "" {
		return
	}
	hc := d.counters(host)
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if success {
		hc.successes[method]++
	} else {
		hc.failures[method]++
	}
	hc.lastSeen = time.Now()
}

// Recommend returns a starting-method override for the URL's host, or ""
// when there is no opinion.
//
// Rules: when simple fails more than half the time and browser has worked,
// start at browser; when every rendered attempt failed but stealth has
// worked, start at stealth.
func (d *DomainIntel) Recommend(url string) models.FetchMethod {
	host := common.HostOf(url)
	d.mu.RLock()
	hc, ok := d.hosts[host]
	d.mu.RUnlock()
	if !ok {
		return ""
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	simpleAttempts := hc.successes[models.MethodSimple] + hc.failures[models.MethodSimple]
	if simpleAttempts > 0 {
		failRate := float64(hc.failures[models.MethodSimple]) / float64(simpleAttempts)
		if failRate > 0.5 && hc.successes[models.MethodBrowser] > 0 {
			return models.MethodBrowser
		}
	}

	browserAttempts := hc.successes[models.MethodBrowser] + hc.failures[models.MethodBrowser]
	if browserAttempts > 0 && hc.successes[models.MethodBrowser] == 0 && hc.successes[models.MethodStealth] > 0 {
		return models.MethodStealth
	}
	return ""
}

// Flush snapshots the in-memory counters to the backing store
func (d *DomainIntel) Flush(ctx context.Context) error {
	if d.storage == nil {
		return nil
	}

	d.mu.RLock()
	hosts := make(map[string]*hostCounters, len(d.hosts))
	for h, hc := range d.hosts {
		hosts[h] = hc
	}
	d.mu.RUnlock()

	for host, hc := range hosts {
		hc.mu.Lock()
		stats := &models.DomainStats{
			Host:      host,
			Successes: make(map[string]int, len(hc.successes)),
			Failures:  make(map[string]int, len(hc.failures)),
			LastSeen:  hc.lastSeen.UnixMilli(),
		}
		for m, n := range hc.successes {
			stats.Successes[string(m)] = n
		}
		for m, n := range hc.failures {
			stats.Failures[string(m)] = n
		}
		hc.mu.Unlock()

		if err := d.storage.StoreDomainStats(ctx, stats); err != nil {
			d.logger.Warn().Err(err).Str("host", host).Msg("Failed to persist domain stats")
		}
	}
	return nil
}
