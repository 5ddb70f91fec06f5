package timeline

import (
	"container/list"

	"github.com/rinkworks/rinkmotion/internal/play"
)

// frameCache memoizes interpolated frames keyed by the rounded query time.
// It is a true bounded LRU: once full, the least recently used entry is
// evicted, so scrubbing back and forth stays warm without growing unbounded.
type frameCache struct {
	capacity int
	ll       *list.List
	items    map[int64]*list.Element
}

type cacheEntry struct {
	key   int64
	frame *play.Keyframe
}

func newFrameCache(capacity int) *frameCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &frameCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[int64]*list.Element, capacity),
	}
}

func (c *frameCache) get(key int64) (*play.Keyframe, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).frame, true
}

func (c *frameCache) set(key int64, frame *play.Keyframe) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).frame = frame
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, frame: frame})
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *frameCache) clear() {
	c.ll.Init()
	c.items = make(map[int64]*list.Element, c.capacity)
}

func (c *frameCache) len() int { return c.ll.Len() }
