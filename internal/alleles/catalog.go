// Package alleles provides the MHC allele catalogs offered in the
// prediction form. A built-in catalog of common human alleles ships
// embedded; a catalog directory can override or extend it per prediction
// method, with live reload on file changes.
package alleles

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.json
var defaults embed.FS

// DefaultKey is the bucket used when a method has no catalog of its own.
const DefaultKey = "_default"

// catalogFile is the on-disk shape: tool group -> method -> alleles.
type catalogFile map[string]map[string][]string

// Catalog holds allele buckets keyed by tool group and method. Reads are
// concurrent with reloads.
type Catalog struct {
	mu      sync.RWMutex
	buckets catalogFile
	log     *slog.Logger
}

// NewCatalog returns a catalog seeded from the embedded defaults.
func NewCatalog(log *slog.Logger) (*Catalog, error) {
	c := &Catalog{buckets: catalogFile{}, log: log}
	if err := fs.WalkDir(defaults, "defaults", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := defaults.ReadFile(path)
		if err != nil {
			return err
		}
		return c.merge(data, ".json")
	}); err != nil {
		return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	return c, nil
}

// LoadDir merges every *.json, *.yaml and *.yml file in dir into the
// catalog. Missing directories are not an error.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read catalog directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !catalogExt(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if err := c.merge(data, filepath.Ext(e.Name())); err != nil {
			return fmt.Errorf("failed to parse catalog %s: %w", e.Name(), err)
		}
	}
	return nil
}

func catalogExt(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func (c *Catalog) merge(data []byte, ext string) error {
	var file catalogFile
	var err error
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for toolGroup, methods := range file {
		if c.buckets[toolGroup] == nil {
			c.buckets[toolGroup] = map[string][]string{}
		}
		for method, alleles := range methods {
			c.buckets[toolGroup][method] = alleles
		}
	}
	return nil
}

// Alleles returns the catalog for the given tool group and method, falling
// back to the tool group's default bucket.
func (c *Catalog) Alleles(toolGroup, method string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	methods, ok := c.buckets[toolGroup]
	if !ok {
		return nil
	}
	if alleles, ok := methods[method]; ok {
		return alleles
	}
	return methods[DefaultKey]
}

// ToolGroups lists the tool groups the catalog knows about.
func (c *Catalog) ToolGroups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.buckets))
	for tg := range c.buckets {
		out = append(out, tg)
	}
	return out
}

// Watch reloads the catalog directory whenever a catalog file in it
// changes. It blocks until ctx is cancelled; onReload, if non-nil, runs
// after each successful reload.
func (c *Catalog) Watch(ctx context.Context, dir string, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		c.log.Error("failed to watch catalog directory", "dir", dir, "error", err)
		<-ctx.Done()
		return nil
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !catalogExt(event.Name) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(100*time.Millisecond, func() {
				c.log.Debug("catalog changed, reloading", "file", event.Name)
				if err := c.LoadDir(dir); err != nil {
					c.log.Error("catalog reload failed", "error", err)
					return
				}
				if onReload != nil {
					onReload()
				}
			})

		case err := <-watcher.Errors:
			c.log.Error("watcher error", "error", err)
		}
	}
}
