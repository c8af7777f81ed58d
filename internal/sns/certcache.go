package sns

import (
	"crypto/x509"
	"sync"
	"time"
)

type cachedCert struct {
	cert     *x509.Certificate
	fetched  time.Time
	lastUsed time.Time
}

// certCache is a bounded in-process TTL cache for signing certificates,
// keyed by certificate URL. When full, the least recently used entry is
// evicted.
type certCache struct {
	mu         sync.Mutex
	entries    map[string]*cachedCert
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func newCertCache(ttl time.Duration, maxEntries int) *certCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &certCache{
		entries:    make(map[string]*cachedCert),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *certCache) get(url string) (*x509.Certificate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetched) > c.ttl {
		delete(c.entries, url)
		return nil, false
	}
	entry.lastUsed = c.now()
	return entry.cert, true
}

func (c *certCache) put(url string, cert *x509.Certificate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.fetched) > c.ttl {
			delete(c.entries, key)
		}
	}

	if len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.lastUsed.Before(oldest) {
				oldestKey = key
				oldest = entry.lastUsed
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[url] = &cachedCert{cert: cert, fetched: now, lastUsed: now}
}
