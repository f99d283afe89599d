package throttle

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"sync"
	"time"

	"clinic-server-go/internal/domain/model"
)

const (
	defaultCleanFrequency = time.Minute
	minCleanFrequency     = time.Second
)

// Options encapsulates the thresholds and dependencies of a Limiter.
type Options struct {
	// MaxRequests bounds how many times one fingerprint may repeat within
	// Period before the source IP is banned.
	MaxRequests int
	Period      time.Duration
	// MaxFingerprints bounds how many distinct fingerprints one IP may emit
	// within Period before it is rate limited.
	MaxFingerprints   int
	RateLimitDuration time.Duration
	BanDuration       time.Duration
	CleanFrequency    time.Duration
	Whitelist         []string
	Blacklist         []string
	Logger            model.Logger
}

// Limiter fingerprints requests and enforces rate limits, bans and
// allow/deny lists. Each map category has its own lock so the read-heavy
// classification path and the background sweep contend as little as
// possible.
type Limiter struct {
	opts Options

	// history maps IP -> fingerprint -> timestamps inside the sliding window.
	history   map[string]map[uint64][]time.Time
	historyMu sync.Mutex

	rateLimited   map[string]time.Time
	rateLimitedMu sync.Mutex

	banned   map[string]time.Time
	bannedMu sync.Mutex

	whitelist []*regexp.Regexp
	blacklist []*regexp.Regexp

	logger model.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	startMu  sync.Mutex
	started  bool

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter builds a Limiter. The background sweep is not running until
// Start is called, so tests can construct one without incurring a live
// goroutine.
func NewLimiter(opts Options) (*Limiter, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("throttle limiter requires a logger")
	}
	if opts.MaxRequests <= 0 {
		return nil, fmt.Errorf("throttle limiter requires a positive max requests")
	}
	if opts.Period <= 0 {
		return nil, fmt.Errorf("throttle limiter requires a positive period")
	}
	if opts.MaxFingerprints <= 0 {
		return nil, fmt.Errorf("throttle limiter requires a positive max fingerprints")
	}
	if opts.CleanFrequency <= 0 {
		opts.CleanFrequency = defaultCleanFrequency
	} else if opts.CleanFrequency < minCleanFrequency {
		opts.Logger.Warn("clean frequency too small, adjusting to %s", minCleanFrequency)
		opts.CleanFrequency = minCleanFrequency
	}

	whitelist, err := compilePatterns(opts.Whitelist)
	if err != nil {
		return nil, fmt.Errorf("invalid whitelist pattern: %w", err)
	}
	blacklist, err := compilePatterns(opts.Blacklist)
	if err != nil {
		return nil, fmt.Errorf("invalid blacklist pattern: %w", err)
	}

	return &Limiter{
		opts:        opts,
		history:     make(map[string]map[uint64][]time.Time),
		rateLimited: make(map[string]time.Time),
		banned:      make(map[string]time.Time),
		whitelist:   whitelist,
		blacklist:   blacklist,
		logger:      opts.Logger,
		stop:        make(chan struct{}),
		now:         time.Now,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Start launches the background sweep. Idempotent.
func (l *Limiter) Start() {
	l.startMu.Lock()
	defer l.startMu.Unlock()
	if l.started {
		return
	}
	l.started = true

	l.wg.Add(1)
	go l.runSweep()
}

// Stop signals the sweep goroutine and waits for it to exit.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	l.wg.Wait()
}

func (l *Limiter) runSweep() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.opts.CleanFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}

// Classify evaluates the request against the lists, the rate-limit set, the
// ban set and the sliding window, in that fixed order. Any panic on the way
// is reported as StatusError; blocking on it is the caller's choice.
func (l *Limiter) Classify(record RequestRecord) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("throttle classification panic for %s: %v", record.IP, r)
			status = StatusError
		}
	}()

	ip := record.IP
	now := l.now()

	if matchAny(l.whitelist, ip) {
		return StatusWhitelisted
	}
	if matchAny(l.blacklist, ip) {
		return StatusBlacklisted
	}

	if l.expiryActive(&l.rateLimitedMu, l.rateLimited, ip, now) {
		// Keep accounting so abuse during the penalty keeps accruing.
		l.record(ip, l.Fingerprint(record), now)
		return StatusRateLimited
	}

	if l.expiryActive(&l.bannedMu, l.banned, ip, now) {
		return StatusBanned
	}

	fingerprint := l.Fingerprint(record)
	distinct, count := l.record(ip, fingerprint, now)

	if distinct > l.opts.MaxFingerprints {
		l.rateLimitedMu.Lock()
		l.rateLimited[ip] = now.Add(l.opts.RateLimitDuration)
		l.rateLimitedMu.Unlock()
		l.logger.Warn("rate limiting %s: %d distinct request shapes in window", ip, distinct)
		return StatusRateLimited
	}

	if count > l.opts.MaxRequests {
		l.bannedMu.Lock()
		l.banned[ip] = now.Add(l.opts.BanDuration)
		l.bannedMu.Unlock()
		l.logger.Warn("banning %s: fingerprint repeated %d times in window", ip, count)
		return StatusBanned
	}

	return StatusAllowed
}

// expiryActive reports whether ip sits in the given expiry map with an
// unexpired deadline, dropping the entry when the deadline has passed.
func (l *Limiter) expiryActive(mu *sync.Mutex, entries map[string]time.Time, ip string, now time.Time) bool {
	mu.Lock()
	defer mu.Unlock()

	deadline, ok := entries[ip]
	if !ok {
		return false
	}
	if now.After(deadline) {
		delete(entries, ip)
		return false
	}
	return true
}

// record appends now to the IP+fingerprint sequence, prunes timestamps that
// fell out of the window, and returns the number of distinct fingerprints
// for the IP plus the timestamp count for this fingerprint.
func (l *Limiter) record(ip string, fingerprint uint64, now time.Time) (distinct, count int) {
	cutoff := now.Add(-l.opts.Period)

	l.historyMu.Lock()
	defer l.historyMu.Unlock()

	shapes, ok := l.history[ip]
	if !ok {
		shapes = make(map[uint64][]time.Time)
		l.history[ip] = shapes
	}

	kept := pruneBefore(shapes[fingerprint], cutoff)
	kept = append(kept, now)
	shapes[fingerprint] = kept

	return len(shapes), len(kept)
}

// Fingerprint hashes the request's header values and body into a 64-bit
// content fingerprint. Header values are folded in key order so map
// iteration does not change the result.
func (l *Limiter) Fingerprint(record RequestRecord) uint64 {
	h := fnv.New64a()

	keys := make([]string, 0, len(record.Headers))
	for key := range record.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		h.Write([]byte(record.Headers[key]))
	}
	h.Write(record.Body)
	return h.Sum64()
}

// Sweep removes expired window timestamps, rate-limit entries and ban
// entries, bounding memory independent of traffic shape.
func (l *Limiter) Sweep() {
	now := l.now()
	cutoff := now.Add(-l.opts.Period)

	l.historyMu.Lock()
	for ip, shapes := range l.history {
		for fingerprint, stamps := range shapes {
			kept := pruneBefore(stamps, cutoff)
			if len(kept) == 0 {
				delete(shapes, fingerprint)
				continue
			}
			shapes[fingerprint] = kept
		}
		if len(shapes) == 0 {
			delete(l.history, ip)
		}
	}
	l.historyMu.Unlock()

	l.rateLimitedMu.Lock()
	for ip, deadline := range l.rateLimited {
		if now.After(deadline) {
			delete(l.rateLimited, ip)
		}
	}
	l.rateLimitedMu.Unlock()

	l.bannedMu.Lock()
	for ip, deadline := range l.banned {
		if now.After(deadline) {
			delete(l.banned, ip)
		}
	}
	l.bannedMu.Unlock()
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	return kept
}

func matchAny(patterns []*regexp.Regexp, ip string) bool {
	for _, re := range patterns {
		if re.MatchString(ip) {
			return true
		}
	}
	return false
}

// Stats returns debug counters for the stats endpoint.
func (l *Limiter) Stats() map[string]any {
	l.historyMu.Lock()
	tracked := len(l.history)
	l.historyMu.Unlock()

	l.rateLimitedMu.Lock()
	rateLimited := len(l.rateLimited)
	l.rateLimitedMu.Unlock()

	l.bannedMu.Lock()
	banned := len(l.banned)
	l.bannedMu.Unlock()

	return map[string]any{
		"tracked_ips": tracked,
		"ratelimited": rateLimited,
		"banned":      banned,
	}
}
