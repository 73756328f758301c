package core

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"sync"
	"time"
)

const (
	photosDir     = "photos"
	photoPrefix   = "photo_"
	photoFileType = ".jpg"
)

var (
	embeddedTimestamp = regexp.MustCompile(`photo_(\d+)`)
	photosPathSuffix  = regexp.MustCompile(`photos/[^/]+$`)
)

// identityGenerator derives photo names from capture time. Captures within
// the same millisecond get a counter suffix so names never collide.
type identityGenerator struct {
	mu         sync.Mutex
	lastMillis int64
	seq        int
}

func (g *identityGenerator) next(millis int64, taken func(name string) bool) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if millis != g.lastMillis {
		g.lastMillis = millis
		g.seq = 0
	}
	for {
		name := photoPrefix + strconv.FormatInt(millis, 10)
		if g.seq > 0 {
			name = fmt.Sprintf("%s_%d", name, g.seq)
		}
		g.seq++
		if taken == nil || !taken(name) {
			return name
		}
	}
}

func photoPath(name string) string {
	return path.Join(photosDir, name+photoFileType)
}

// timestampFromLocator parses the capture time embedded in a photo file name.
func timestampFromLocator(locator string) (int64, bool) {
	match := embeddedTimestamp.FindStringSubmatch(locator)
	if match == nil {
		return 0, false
	}
	millis, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return millis, true
}

// pathFromLocator recovers the relative photos/ path from a platform URI.
func pathFromLocator(locator string) string {
	if match := photosPathSuffix.FindString(locator); match != "" {
		return match
	}
	return locator
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return startOfDay(a, loc).Equal(startOfDay(b, loc))
}
