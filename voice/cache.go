package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const DefaultPhraseTTL = 30 * time.Minute

// PhraseCache maps phrases to synthesized audio files in a directory.
// Files are named by the sha256 of the phrase key and are reused across
// runs; the in-memory index only saves the stat and expires after ttl.
type PhraseCache struct {
	dir   string
	index *ttlcache.Cache[string, string]
	group singleflight.Group
}

func NewPhraseCache(dir string, ttl time.Duration) *PhraseCache {
	if ttl <= 0 {
		ttl = DefaultPhraseTTL
	}
	index := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
	)
	go index.Start() // expired entries are swept until Close

	return &PhraseCache{dir: dir, index: index}
}

// Close stops the expiry sweeper.
func (c *PhraseCache) Close() {
	c.index.Stop()
}

func (c *PhraseCache) Dir() string { return c.dir }

// Resolve returns the cached file for key, calling synth to create it at
// the given path when it does not exist yet. Concurrent calls for the same
// key share a single synth call.
func (c *PhraseCache) Resolve(key, ext string, synth func(path string) error) (string, error) {
	if item := c.index.Get(key); item != nil {
		return item.Value(), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if err := os.MkdirAll(c.dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create cache dir; %w", err)
		}

		file := filepath.Join(c.dir, hashString(key)+ext)
		if info, err := os.Stat(file); err == nil && info.Size() > 0 {
			c.index.Set(key, file, ttlcache.DefaultTTL)
			return file, nil // this phrase was already synthesized
		}

		if err := synth(file); err != nil {
			os.Remove(file)
			return "", err
		}
		logrus.WithField("file", file).Debug("phrase synthesized")

		c.index.Set(key, file, ttlcache.DefaultTTL)
		return file, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Lookup returns the file already synthesized for key without creating it.
func (c *PhraseCache) Lookup(key, ext string) (string, bool) {
	if item := c.index.Get(key); item != nil {
		return item.Value(), true
	}
	file := filepath.Join(c.dir, hashString(key)+ext)
	if info, err := os.Stat(file); err == nil && info.Size() > 0 {
		c.index.Set(key, file, ttlcache.DefaultTTL)
		return file, true
	}
	return "", false
}

func (c *PhraseCache) Len() int {
	return c.index.Len()
}

// Forget drops key from the index. The file stays on disk.
func (c *PhraseCache) Forget(key string) {
	c.index.Delete(key)
}
