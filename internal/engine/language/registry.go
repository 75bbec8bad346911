// # internal/engine/language/registry.go
package language

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"fern/internal/core/errors"
)

// Registry hands out Language references by id or by file path. There is
// deliberately no process-global registry: callers construct one, load
// artifacts into it, and pass languages explicitly to each parser.
//
// Safe for concurrent use; languages themselves are immutable.
type Registry struct {
	mu        sync.RWMutex
	languages map[string]*Language
	patterns  []pathPattern
}

type pathPattern struct {
	pattern string
	matcher glob.Glob
	langID  string
}

func NewRegistry() *Registry {
	return &Registry{languages: make(map[string]*Language)}
}

// Register adds a language under its own name.
func (r *Registry) Register(lang *Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[lang.Name] = lang
}

// AddPattern routes file paths matching the glob pattern to the given
// language id, e.g. AddPattern("**.fn", "fun").
func (r *Registry) AddPattern(pattern, langID string) error {
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError,
			fmt.Sprintf("bad path pattern %q", pattern))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pathPattern{pattern: pattern, matcher: matcher, langID: langID})
	return nil
}

// Language returns the language registered under id.
func (r *Registry) Language(id string) (*Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.languages[id]
	return lang, ok
}

// LanguageForPath routes a file path to a language via the registered
// patterns. Patterns are tried in registration order.
func (r *Registry) LanguageForPath(path string) (*Language, bool) {
	path = filepath.ToSlash(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patterns {
		if p.matcher.Match(path) || p.matcher.Match(filepath.Base(path)) {
			lang, ok := r.languages[p.langID]
			return lang, ok
		}
	}
	return nil, false
}

// IDs returns the registered language ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.languages))
	for id := range r.languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir loads every artifact manifest (*.toml) found in dir. Artifacts
// that fail version or checksum verification abort the whole load: a
// half-populated registry is worse than a clear startup failure.
func (r *Registry) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotFound, "artifact directory missing")
	}
	if !info.IsDir() {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("artifact path is not a directory: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		manifestPath := filepath.Join(dir, e.Name())
		lang, err := LoadArtifact(manifestPath)
		if err != nil {
			return errors.AddContext(err, errors.CtxPath, manifestPath)
		}
		r.Register(lang)
		slog.Debug("loaded language artifact", "language", lang.Name, "abi", lang.Version)
	}
	return nil
}

// Watch reloads artifacts from dir whenever their manifests change, until
// ctx is cancelled. Rapid event bursts for the same manifest are coalesced
// over the debounce window, since editors and builds tend to write files
// in several syscalls. A reload failure keeps the previously loaded
// language and logs the error.
func (r *Registry) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		pending := make(map[string]struct{})
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".toml") {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				pending[event.Name] = struct{}{}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(debounce)
				fire = timer.C
			case <-fire:
				for path := range pending {
					r.reload(path)
				}
				pending = make(map[string]struct{})
				fire = nil
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("artifact watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (r *Registry) reload(path string) {
	lang, err := LoadArtifact(path)
	if err != nil {
		slog.Error("artifact reload failed", "path", path, "error", err)
		return
	}
	r.Register(lang)
	slog.Info("reloaded language artifact", "language", lang.Name)
}
