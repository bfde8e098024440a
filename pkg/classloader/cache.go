package classloader

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// CachingClassLoader wraps a ClassLoader with a memoization cache for
// LineInfoFromPc lookups, keyed by an xxhash digest of the call's
// (class, method, descriptor, pc) tuple. The stack walker re-resolves the
// same method's LineInfo repeatedly across a session (every
// READ_STACK_TRACE re-derives the current frame's line), so caching avoids
// repeated work in the external ClassLoader. LineInfoFromLine, which the
// breakpoint reconciler uses, is passed through uncached.
type CachingClassLoader struct {
	inner ClassLoader

	mu    sync.Mutex
	byPC  map[uint64]LineInfo
	miss  map[uint64]bool
}

// NewCachingClassLoader wraps inner.
func NewCachingClassLoader(inner ClassLoader) *CachingClassLoader {
	return &CachingClassLoader{
		inner: inner,
		byPC:  make(map[uint64]LineInfo),
		miss:  make(map[uint64]bool),
	}
}

func pcCacheKey(pc uint32, className, methodName, descriptor string) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte(className))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(methodName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(descriptor))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatUint(uint64(pc), 10)))
	return h.Sum64()
}

func (c *CachingClassLoader) Load(className string) (Loader, error) {
	return c.inner.Load(className)
}

func (c *CachingClassLoader) LineInfoFromLine(line uint32, sourcePath string) (LineInfo, bool) {
	// Line lookups happen only while reconciling breakpoints (low
	// frequency, always against a fresh set of requested lines), so they
	// are not worth caching — only the hot PC-based path used by every
	// stack-trace read is memoized.
	return c.inner.LineInfoFromLine(line, sourcePath)
}

func (c *CachingClassLoader) LineInfoFromPc(pc uint32, className, methodName, descriptor string) (LineInfo, bool) {
	key := pcCacheKey(pc, className, methodName, descriptor)

	c.mu.Lock()
	if li, ok := c.byPC[key]; ok {
		c.mu.Unlock()
		return li, true
	}
	if c.miss[key] {
		c.mu.Unlock()
		return LineInfo{}, false
	}
	c.mu.Unlock()

	li, ok := c.inner.LineInfoFromPc(pc, className, methodName, descriptor)

	c.mu.Lock()
	if ok {
		c.byPC[key] = li
	} else {
		c.miss[key] = true
	}
	c.mu.Unlock()

	return li, ok
}
