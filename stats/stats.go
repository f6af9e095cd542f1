package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests      atomic.Int64
	NowPlayingRequests atomic.Int64
	PlaylistRequests   atomic.Int64
	AuthRequests       atomic.Int64
	StatsRequests      atomic.Int64
	HealthRequests     atomic.Int64
	OtherRequests      atomic.Int64

	// Playlist cache performance
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Where now-playing answers came from
	NowPlayingCurrent atomic.Int64
	NowPlayingRecent  atomic.Int64
	NowPlayingNone    atomic.Int64

	UpstreamFailures atomic.Int64
	OriginRejections atomic.Int64

	// Response status codes
	Status2xx atomic.Int64
	Status3xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64
}

const noMin = int64(^uint64(0) >> 1)

// New returns an empty Stats starting now.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(noMin)
	return s
}

var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/api/now-playing":
		s.NowPlayingRequests.Add(1)
	case "/api/playlists":
		s.PlaylistRequests.Add(1)
	case "/login", "/callback":
		s.AuthRequests.Add(1)
	case "/stats":
		s.StatsRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordNowPlayingSource counts which call produced a now-playing answer ("current", "recent" or "none").
func (s *Stats) RecordNowPlayingSource(source string) {
	switch source {
	case "current":
		s.NowPlayingCurrent.Add(1)
	case "recent":
		s.NowPlayingRecent.Add(1)
	default:
		s.NowPlayingNone.Add(1)
	}
}

func (s *Stats) RecordUpstreamFailure() {
	s.UpstreamFailures.Add(1)
}

func (s *Stats) RecordOriginRejected() {
	s.OriginRejections.Add(1)
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 300 && code < 400:
		s.Status3xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the playlist cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == noMin {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":       s.TotalRequests.Load(),
			"now_playing": s.NowPlayingRequests.Load(),
			"playlists":   s.PlaylistRequests.Load(),
			"auth":        s.AuthRequests.Load(),
			"stats":       s.StatsRequests.Load(),
			"health":      s.HealthRequests.Load(),
			"other":       s.OtherRequests.Load(),
		},
		"cache": map[string]interface{}{
			"hits":     s.CacheHits.Load(),
			"misses":   s.CacheMisses.Load(),
			"hit_rate": s.CacheHitRate(),
		},
		"now_playing": map[string]interface{}{
			"current": s.NowPlayingCurrent.Load(),
			"recent":  s.NowPlayingRecent.Load(),
			"none":    s.NowPlayingNone.Load(),
		},
		"upstream_failures": s.UpstreamFailures.Load(),
		"origin_rejections": s.OriginRejections.Load(),
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"3xx": s.Status3xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
