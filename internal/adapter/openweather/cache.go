package openweather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
)

// CachedSource wraps a WeatherSource with in-memory LRU caches whose entries
// expire after a TTL. Keys are coordinates rounded to four decimals.
type CachedSource struct {
	inner   domain.WeatherSource
	weather *lruCache[domain.Weather]
	air     *lruCache[domain.AirQuality]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a weather source.
func NewCachedSource(inner domain.WeatherSource, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		weather: newLRUCache[domain.Weather](maxEntries, ttl, clock),
		air:     newLRUCache[domain.AirQuality](maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedSource) CurrentWeather(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	key := cacheKey(lat, lon)
	if w, ok := c.weather.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("weather", "hit").Inc()
		return w, nil
	}
	c.metrics.WeatherCache.WithLabelValues("weather", "miss").Inc()

	w, err := c.inner.CurrentWeather(ctx, lat, lon)
	if err != nil {
		return w, err
	}
	c.weather.put(key, w)
	return w, nil
}

func (c *CachedSource) AirPollution(ctx context.Context, lat, lon float64) (domain.AirQuality, error) {
	key := cacheKey(lat, lon)
	if a, ok := c.air.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("air", "hit").Inc()
		return a, nil
	}
	c.metrics.WeatherCache.WithLabelValues("air", "miss").Inc()

	a, err := c.inner.AirPollution(ctx, lat, lon)
	if err != nil {
		return a, err
	}
	c.air.put(key, a)
	return a, nil
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// lruCache is a thread-safe LRU cache with per-entry expiry.
type lruCache[V any] struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *entry[V]
	next      *entry[V]
}

func newLRUCache[V any](maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
