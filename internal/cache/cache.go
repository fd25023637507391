// Package cache implements the on-disk, content-addressed conversion cache:
// (origin path, target format) -> cached artifact, validated by mtime then
// CRC-32 checksum, with crash-safe index rewriting and age-based eviction.
package cache

import (
	"bufio"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/cburschka/lyx-sub006/internal/mover"
)

// compositeSiblings hardcodes the composite-format rule preserved from the
// original implementation's ConverterCache::add/copy: producing a pstex (or
// pdftex) output implicitly also produces its eps (or pdf) sibling, which
// must be cached/copied alongside it.
//
// FIXME: driving this from a configuration table instead of hardcoding it
// here would let hosts add their own composite formats without a code change.
var compositeSiblings = map[string]string{
	"pstex":  "eps",
	"pdftex": "pdf",
}

// Item is one cached conversion result.
type Item struct {
	CacheName string // path inside the cache directory
	Timestamp int64  // origin file mtime, seconds since epoch, at insertion
	Checksum  uint32 // CRC-32 of the origin file's contents at insertion
}

// formatCache is the per-origin entry: the format guessed for origin at
// insertion time, plus one Item per target format produced so far.
type formatCache struct {
	fromFormat string
	perTarget  map[string]Item
}

// Cache is the conversion cache: an in-memory index backed by an on-disk
// directory of cached artifacts plus a single plain-text index file.
type Cache struct {
	fs      afero.Fs
	movers  *mover.Registry
	dir     string
	maxAge  time.Duration
	enabled bool
	sniff   func(path string) string

	entries map[string]*formatCache // origin path -> formatCache
}

// New returns a Cache rooted at dir. sniff guesses a format name from file
// content, used to populate FormatCache.from_format on load.
func New(fs afero.Fs, movers *mover.Registry, dir string, maxAge time.Duration, enabled bool, sniff func(string) string) *Cache {
	return &Cache{
		fs:      fs,
		movers:  movers,
		dir:     dir,
		maxAge:  maxAge,
		enabled: enabled,
		sniff:   sniff,
		entries: make(map[string]*formatCache),
	}
}

// Init ensures the cache directory exists (mode 0700) and loads the index,
// if the cache is enabled.
func (c *Cache) Init() error {
	if !c.enabled {
		return nil
	}
	if err := c.fs.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return c.LoadIndex()
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, "index")
}

// LoadIndex reads the index file line by line, dropping entries whose
// origin or cached file has disappeared, or whose cached file has aged out.
// Entries dropped for a missing origin or for age also have their cached
// file deleted.
func (c *Cache) LoadIndex() error {
	f, err := c.fs.Open(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	now := time.Now()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		origin, target, timestamp, checksum, err := parseIndexLine(line)
		if err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("cache index line malformed, skipping")
			continue
		}

		if _, err := c.fs.Stat(origin); err != nil {
			// origin gone: drop the entry and delete its cached file
			c.fs.Remove(cacheFileName(c.dir, origin, target))
			continue
		}

		item := Item{
			CacheName: cacheFileName(c.dir, origin, target),
			Timestamp: timestamp,
			Checksum:  checksum,
		}

		info, err := c.fs.Stat(item.CacheName)
		if err != nil {
			continue // cached file gone, another process may have evicted it
		}

		if now.Sub(info.ModTime()) > c.maxAge {
			c.fs.Remove(item.CacheName)
			continue
		}

		fc, ok := c.entries[origin]
		if !ok {
			fc = &formatCache{perTarget: make(map[string]Item)}
			if c.sniff != nil {
				fc.fromFormat = c.sniff(origin)
			}
			c.entries[origin] = fc
		}
		fc.perTarget[target] = item
	}
	return scanner.Err()
}

func parseIndexLine(line string) (origin, target string, timestamp int64, checksum uint32, err error) {
	origin, rest, ok := unquoteField(line)
	if !ok {
		return "", "", 0, 0, fmt.Errorf("missing quoted origin field")
	}
	fields := strings.Fields(rest)
	if len(fields) != 3 {
		return "", "", 0, 0, fmt.Errorf("expected target, timestamp, checksum; got %d fields", len(fields))
	}
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("parsing timestamp: %w", err)
	}
	sum, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("parsing checksum: %w", err)
	}
	return origin, fields[0], ts, uint32(sum), nil
}

// unquoteField consumes a leading `"..."` field with \\ and \" escapes,
// returning the unescaped content and the remainder of the line.
func unquoteField(line string) (field string, rest string, ok bool) {
	if len(line) == 0 || line[0] != '"' {
		return "", line, false
	}
	var b strings.Builder
	i := 1
	for i < len(line) {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			b.WriteByte(line[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), strings.TrimSpace(line[i+1:]), true
		}
		b.WriteByte(c)
		i++
	}
	return "", line, false
}

func quoteField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// SaveIndex writes the index atomically: create empty, chmod 0600, then
// write, so the index never transiently leaks world-readable.
func (c *Cache) SaveIndex() error {
	path := c.indexPath()

	empty, err := c.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	empty.Close()
	if err := c.fs.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod index file: %w", err)
	}

	f, err := c.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("reopening index file: %w", err)
	}
	defer f.Close()

	for origin, fc := range c.entries {
		for target, item := range fc.perTarget {
			line := fmt.Sprintf("%s %s %d %d\n", quoteField(origin), target, item.Timestamp, item.Checksum)
			if _, err := io.WriteString(f, line); err != nil {
				return fmt.Errorf("writing index: %w", err)
			}
		}
	}
	return nil
}

// Find returns the cached item for (origin, target), if any.
func (c *Cache) Find(origin, target string) (Item, bool) {
	fc, ok := c.entries[origin]
	if !ok {
		return Item{}, false
	}
	item, ok := fc.perTarget[target]
	return item, ok
}

// InCache reports whether (origin, target) is present and still fresh:
// timestamp match, or checksum match (which also refreshes the stored
// timestamp so subsequent calls take the fast path).
func (c *Cache) InCache(origin, target string) bool {
	if !c.enabled {
		return false
	}
	item, ok := c.Find(origin, target)
	if !ok {
		return false
	}
	info, err := c.fs.Stat(origin)
	if err != nil {
		return false
	}
	ts := info.ModTime().Unix()
	if ts == item.Timestamp {
		return true
	}
	sum, err := c.checksumOf(origin)
	if err != nil {
		return false
	}
	if sum == item.Checksum {
		item.Timestamp = ts
		c.entries[origin].perTarget[target] = item
		return true
	}
	return false
}

// Add records that origin has been converted to target, producing
// producedFile. Handles the pstex/pdftex composite sibling rule by
// recursing once for the implied sibling target before doing its own work.
func (c *Cache) Add(origin, target, producedFile string) error {
	if !c.enabled || origin == "" || producedFile == "" {
		return nil
	}

	if sibling, ok := compositeSiblings[target]; ok {
		siblingFile := changeExtension(producedFile, sibling)
		if err := c.Add(origin, sibling, siblingFile); err != nil {
			return err
		}
	}

	info, err := c.fs.Stat(origin)
	if err != nil {
		return fmt.Errorf("stat origin: %w", err)
	}
	timestamp := info.ModTime().Unix()

	if item, ok := c.Find(origin, target); ok {
		if item.Timestamp == timestamp {
			return nil
		}
		sum, err := c.checksumOf(origin)
		if err != nil {
			return err
		}
		item.Timestamp = timestamp
		if sum == item.Checksum {
			c.entries[origin].perTarget[target] = item
			return nil
		}
		item.Checksum = sum
		m := c.movers.Get(target)
		if err := m.Copy(context.Background(), producedFile, item.CacheName, filepath.Base(item.CacheName)); err != nil {
			return fmt.Errorf("copying into cache: %w", err)
		}
		c.entries[origin].perTarget[target] = item
		return nil
	}

	sum, err := c.checksumOf(origin)
	if err != nil {
		return err
	}
	item := Item{
		CacheName: cacheFileName(c.dir, origin, target),
		Timestamp: timestamp,
		Checksum:  sum,
	}
	m := c.movers.Get(target)
	if err := m.Copy(context.Background(), producedFile, item.CacheName, filepath.Base(item.CacheName)); err != nil {
		return fmt.Errorf("copying into cache: %w", err)
	}

	fc, ok := c.entries[origin]
	if !ok {
		fc = &formatCache{perTarget: make(map[string]Item)}
		if c.sniff != nil {
			fc.fromFormat = c.sniff(origin)
		}
		c.entries[origin] = fc
	}
	fc.perTarget[target] = item
	return nil
}

// Copy copies the cached artifact for (origin, target) to dest, recursing
// for the composite sibling first, matching Add's ordering.
func (c *Cache) Copy(origin, target, dest string) error {
	if !c.enabled || origin == "" || dest == "" {
		return fmt.Errorf("cache disabled or empty path")
	}

	if sibling, ok := compositeSiblings[target]; ok {
		siblingDest := changeExtension(dest, sibling)
		if err := c.Copy(origin, sibling, siblingDest); err != nil {
			return err
		}
	}

	item, ok := c.Find(origin, target)
	if !ok {
		return fmt.Errorf("not in cache: %s -> %s", origin, target)
	}
	m := c.movers.Get(target)
	return m.Copy(context.Background(), item.CacheName, dest, filepath.Base(dest))
}

// Remove drops the (origin, target) entry from the index, without touching
// the cached file on disk (mirrors the original's remove, which leaves
// deletion of the file to remove_all/eviction).
func (c *Cache) Remove(origin, target string) {
	fc, ok := c.entries[origin]
	if !ok {
		return
	}
	delete(fc.perTarget, target)
	if len(fc.perTarget) == 0 {
		delete(c.entries, origin)
	}
}

// RemoveAll evicts every entry whose origin format matches fromFormat and
// target format matches toFormat, deletes the backing files, then rewrites
// the index immediately.
func (c *Cache) RemoveAll(fromFormat, toFormat string) error {
	if !c.enabled {
		return nil
	}
	for origin, fc := range c.entries {
		if fc.fromFormat != fromFormat {
			continue
		}
		if item, ok := fc.perTarget[toFormat]; ok {
			c.fs.Remove(item.CacheName)
			delete(fc.perTarget, toFormat)
		}
		if len(fc.perTarget) == 0 {
			delete(c.entries, origin)
		}
	}
	return c.SaveIndex()
}

// Stats summarizes the cache's current contents for reporting commands.
type Stats struct {
	Origins         int   // distinct origin files with at least one cached target
	Entries         int   // total (origin, target) cached results
	Bytes           int64 // sum of cached artifact sizes on disk
	OldestTimestamp int64 // earliest origin mtime recorded at insertion, 0 if empty
	NewestTimestamp int64 // latest origin mtime recorded at insertion
}

// Stats returns an aggregate snapshot of the cache: entry/origin counts,
// total bytes on disk, and the timestamp range of cached entries.
func (c *Cache) Stats() Stats {
	var s Stats
	for _, fc := range c.entries {
		s.Origins++
		for _, item := range fc.perTarget {
			s.Entries++
			if info, err := c.fs.Stat(item.CacheName); err == nil {
				s.Bytes += info.Size()
			}
			if s.OldestTimestamp == 0 || item.Timestamp < s.OldestTimestamp {
				s.OldestTimestamp = item.Timestamp
			}
			if item.Timestamp > s.NewestTimestamp {
				s.NewestTimestamp = item.Timestamp
			}
		}
	}
	return s
}

// GC evicts every entry whose cached artifact is missing or older than
// maxAge, the same rule LoadIndex applies lazily on startup, and returns
// the number of entries evicted. Unlike RemoveAll, GC is not scoped to a
// single (from, to) pair: it sweeps the whole cache on an explicit trigger.
func (c *Cache) GC() (int, error) {
	if !c.enabled {
		return 0, nil
	}
	now := time.Now()
	evicted := 0
	for origin, fc := range c.entries {
		for target, item := range fc.perTarget {
			info, err := c.fs.Stat(item.CacheName)
			if err != nil || now.Sub(info.ModTime()) > c.maxAge {
				c.fs.Remove(item.CacheName)
				delete(fc.perTarget, target)
				evicted++
			}
		}
		if len(fc.perTarget) == 0 {
			delete(c.entries, origin)
		}
	}
	if err := c.SaveIndex(); err != nil {
		return evicted, err
	}
	return evicted, nil
}

// Entry is one (origin, target, Item) row, exposed for cache inspection and
// listing commands.
type Entry struct {
	Origin     string
	FromFormat string
	Target     string
	Item       Item
}

// Entries returns a snapshot of every cached conversion result.
func (c *Cache) Entries() []Entry {
	var out []Entry
	for origin, fc := range c.entries {
		for target, item := range fc.perTarget {
			out = append(out, Entry{Origin: origin, FromFormat: fc.fromFormat, Target: target, Item: item})
		}
	}
	return out
}

func (c *Cache) checksumOf(path string) (uint32, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

func cacheFileName(dir, origin, target string) string {
	sum := crc32.ChecksumIEEE([]byte(origin))
	return filepath.Join(dir, fmt.Sprintf("%010d-%s", sum, target))
}

func changeExtension(path, newExt string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + newExt
}
