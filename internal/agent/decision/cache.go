package decision

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// entry is a cached outcome for one (game, empire, turn). A failed entry
// remembers why the model tier gave up so the turn advance does not call
// providers a second time.
type entry struct {
	Decision Decision
	Failed   bool
}

// Cache holds precomputed decisions keyed by game, empire and target turn.
// Entries for turns below a game's invalidation floor are never stored.
type Cache struct {
	c *gocache.Cache

	mu    sync.Mutex
	floor map[string]int
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: gocache.New(ttl, ttl*2), floor: map[string]int{}}
}

func cacheKey(gameID, empireID string, turn int) string {
	return fmt.Sprintf("%s:%s:%d", gameID, empireID, turn)
}

// put reports whether e was stored; a turn the game already advanced past
// is dropped.
func (c *Cache) put(gameID, empireID string, turn int, e entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if turn < c.floor[gameID] {
		return false
	}
	c.c.SetDefault(cacheKey(gameID, empireID, turn), e)
	return true
}

func (c *Cache) get(gameID, empireID string, turn int) (entry, bool) {
	v, ok := c.c.Get(cacheKey(gameID, empireID, turn))
	if !ok {
		return entry{}, false
	}
	e, ok := v.(entry)
	return e, ok
}

// InvalidateBefore drops every entry of gameID targeting a turn before turn.
func (c *Cache) InvalidateBefore(gameID string, turn int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if turn > c.floor[gameID] {
		c.floor[gameID] = turn
	}
	prefix := gameID + ":"
	n := 0
	for k := range c.c.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		i := strings.LastIndexByte(k, ':')
		t, err := strconv.Atoi(k[i+1:])
		if err != nil || t < turn {
			c.c.Delete(k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int { return c.c.ItemCount() }
