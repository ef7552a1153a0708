package rimage

import (
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.viam.com/posebench/logging"
)

// DebugImageSink receives intermediate images produced while processing a frame.
type DebugImageSink interface {
	GotDebugImage(img image.Image, name string)
}

// NoopDebugSink drops every image.
type NoopDebugSink struct{}

// GotDebugImage does nothing.
func (NoopDebugSink) GotDebugImage(image.Image, string) {}

// DirectoryDebugSink writes every image it receives as <dir>/<name>.png. Write failures are logged
// and otherwise ignored.
type DirectoryDebugSink struct {
	dir    string
	logger logging.Logger

	mu    sync.Mutex
	count map[string]int
}

// NewDirectoryDebugSink returns a sink writing PNG files under dir.
func NewDirectoryDebugSink(dir string, logger logging.Logger) *DirectoryDebugSink {
	return &DirectoryDebugSink{dir: dir, logger: logger, count: map[string]int{}}
}

// GotDebugImage writes img to disk. Repeated names get a numeric suffix instead of overwriting.
func (s *DirectoryDebugSink) GotDebugImage(img image.Image, name string) {
	name = sanitizeImageName(name)
	s.mu.Lock()
	n := s.count[name]
	s.count[name]++
	s.mu.Unlock()
	if n > 0 {
		name = name + "-" + strconv.Itoa(n)
	}
	path := filepath.Join(s.dir, name+".png")
	if err := WriteImageToFile(path, img); err != nil {
		s.logger.Warnw("cannot write debug image", "path", path, "error", err)
		return
	}
	s.logger.Debugw("wrote debug image", "path", path)
}

func sanitizeImageName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "image"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
