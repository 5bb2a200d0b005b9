package conference

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/opd-ai/toxmix/video"
	"github.com/sirupsen/logrus"
)

const defaultAssetCacheSize = 64

// assetCache holds decoded PNG assets (avatars, logos, backgrounds) so each
// file is decoded once per target size.
type assetCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newAssetCache(size int) *assetCache {
	c := lru.New(size)
	c.OnEvicted = func(key lru.Key, _ interface{}) {
		logrus.WithFields(logrus.Fields{
			"function": "assetCache.OnEvicted",
			"key":      key,
		}).Debug("Evicting cached asset")
	}
	return &assetCache{cache: c}
}

func (a *assetCache) get(key string) (*video.VideoFrame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*video.VideoFrame), true
}

func (a *assetCache) put(key string, f *video.VideoFrame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache.Add(key, f)
}

// frame returns the PNG at path at its native size.
func (a *assetCache) frame(path string) (*video.VideoFrame, error) {
	if f, ok := a.get(path); ok {
		return f, nil
	}
	f, err := video.ReadPNG(path)
	if err != nil {
		return nil, err
	}
	a.put(path, f)
	return f, nil
}

// fitted returns the PNG at path resampled to the largest size fitting in
// maxW x maxH with its aspect ratio preserved.
func (a *assetCache) fitted(path string, maxW, maxH int) (*video.VideoFrame, error) {
	key := fmt.Sprintf("%s@%dx%d", path, maxW, maxH)
	if f, ok := a.get(key); ok {
		return f, nil
	}

	img, err := video.DecodePNGImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := video.NewScaler().Fit(uint16(b.Dx()), uint16(b.Dy()), uint16(maxW), uint16(maxH))
	f := video.ScaleImage(img, w, h)
	if f == nil {
		return nil, fmt.Errorf("asset %s too small for %dx%d", path, maxW, maxH)
	}
	a.put(key, f)
	return f, nil
}

// Len returns the number of cached entries.
func (a *assetCache) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache.Len()
}
