package sandbox

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// programCache memoizes compiled bodies. The key covers the body hash,
// so editing a function invalidates its entry without explicit eviction.
type programCache struct {
	lru *lru.Cache[string, *Program]
}

func newProgramCache(size int) *programCache {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[string, *Program](size)
	if err != nil {
		panic(err)
	}
	return &programCache{lru: c}
}

func cacheKey(name, body string) string {
	sum := sha256.Sum256([]byte(body))
	return name + ":" + hex.EncodeToString(sum[:])
}

func (c *programCache) get(name, body string) (*Program, bool) {
	return c.lru.Get(cacheKey(name, body))
}

func (c *programCache) put(name, body string, p *Program) {
	c.lru.Add(cacheKey(name, body), p)
}
