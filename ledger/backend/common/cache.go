package common

import (
	lru "github.com/hashicorp/golang-lru"
)

// ReadCache memoizes point reads of a backend. Writers must Invalidate every key they touch.
type ReadCache struct {
	arc *lru.ARCCache
}

func NewReadCache(size int) *ReadCache {
	if size <= 0 {
		return &ReadCache{}
	}
	arc, err := lru.NewARC(size)
	if err != nil {
		return &ReadCache{}
	}
	return &ReadCache{arc: arc}
}

func (c *ReadCache) Get(key []byte) ([]byte, bool) {
	if c.arc == nil {
		return nil, false
	}
	v, ok := c.arc.Get(string(key))
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *ReadCache) Add(key, value []byte) {
	if c.arc == nil {
		return
	}
	c.arc.Add(string(key), value)
}

func (c *ReadCache) Invalidate(keys ...[]byte) {
	if c.arc == nil {
		return
	}
	for _, key := range keys {
		c.arc.Remove(string(key))
	}
}

func (c *ReadCache) Purge() {
	if c.arc == nil {
		return
	}
	c.arc.Purge()
}
