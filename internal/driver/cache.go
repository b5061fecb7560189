package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"hintgen/internal/diag"
	"hintgen/internal/pyast"
)

// Current schema version - increment when cachePayload format changes
const cacheSchemaVersion uint16 = 1

// DiskCache keeps canonical forms on disk, one msgpack file per problem and
// rendered program. It is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
	rep diag.Reporter
}

type cachePayload struct {
	Schema  uint16
	Problem string
	Code    string
	Tree    []byte
}

// OpenDiskCache creates dir when needed. Broken entries are reported to rep,
// which may be nil, and treated as misses.
func OpenDiskCache(dir string, rep diag.Reporter) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, rep: rep}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(problem, code string) string {
	h := sha256.New()
	h.Write([]byte(problem))
	h.Write([]byte{0})
	h.Write([]byte(code))
	key := hex.EncodeToString(h.Sum(nil))
	return filepath.Join(c.dir, "canon", key[:2], key+".mp")
}

// Store writes tree under problem and code, replacing the file atomically.
func (c *DiskCache) Store(problem, code string, tree *pyast.Node) error {
	if c == nil {
		return nil
	}
	blob, err := pyast.MarshalTree(tree)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(problem, code)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&cachePayload{Schema: cacheSchemaVersion, Problem: problem, Code: code, Tree: blob}); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	ok = true
	return nil
}

// Load returns the cached canonical form of code. Entries of another schema or
// with a colliding key are misses.
func (c *DiskCache) Load(problem, code string) (*pyast.Node, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(problem, code)
	f, err := os.Open(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.report(p, err)
		}
		return nil, false
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		c.report(p, err)
		return nil, false
	}
	if payload.Schema != cacheSchemaVersion || payload.Problem != problem || payload.Code != code {
		return nil, false
	}
	tree, err := pyast.UnmarshalTree(payload.Tree)
	if err != nil {
		c.report(p, err)
		return nil, false
	}
	return tree, true
}

func (c *DiskCache) report(path string, err error) {
	diag.Reportf(c.rep, diag.SevWarning, diag.BndCache, diag.Loc{File: path}, "cache entry unreadable: %v", err)
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("cache: remove %s: %w", old, err)
	}
	return os.MkdirAll(c.dir, 0o755)
}
