// Package storage derives deterministic on-disk paths for artifacts and
// writes them atomically, implementing spec §4.11. Grounded on the
// teacher's internal/crawler/sink_fs.go (root-relative directory creation,
// atomic write discipline) generalized from a single HTML sink to the
// three artifact kinds.
package storage

import (
	"crypto/md5" //nolint:gosec // used only for a short, non-cryptographic path suffix
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the artifact kind a path is derived for.
type Kind string

const (
	KindHTML Kind = "html"
	KindJS   Kind = "js"
	KindAPI  Kind = "api"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Store derives artifact paths under Root and writes them atomically.
type Store struct {
	Root string
}

// New builds a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Store{Root: root}, nil
}

// PathFor derives the relative path (spec §4.11) for the given artifact
// kind and canonical URL. For js it returns the bare basename under js/;
// the caller checks Exists and calls ResolveJSCollision when it is taken.
func (s *Store) PathFor(kind Kind, canonicalURL string) (string, error) {
	parsed, err := url.Parse(canonicalURL)
	if err != nil {
		return "", fmt.Errorf("parse canonical url: %w", err)
	}
	digest := md5Hex(canonicalURL)

	switch kind {
	case KindHTML:
		if parsed.Path == "" || parsed.Path == "/" {
			return filepath.Join("pages", "index.html"), nil
		}
		return filepath.Join("pages", fmt.Sprintf("%s-%s.html", slugify(parsed.Path), digest)), nil
	case KindJS:
		base := path.Base(parsed.Path)
		if base == "" || base == "/" || base == "." {
			base = "script.js"
		}
		return filepath.Join("js", base), nil
	case KindAPI:
		return filepath.Join("api", fmt.Sprintf("%s-%s.json", slugify(parsed.Host+parsed.Path), digest)), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// ResolveJSCollision returns js/<stem>-<md5 suffix><ext> for base, the
// collision path of spec §4.11's js rule; it always appends the suffix,
// leaving the is-it-taken check to the caller.
func (s *Store) ResolveJSCollision(base, canonicalURL string) string {
	digest := md5Hex(canonicalURL)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join("js", fmt.Sprintf("%s-%s%s", stem, digest, ext))
}

// Read returns the bytes previously written to relPath under Root, for
// callers (artifact mirroring) that need the content again after
// WriteAtomic already placed it on disk.
func (s *Store) Read(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, relPath))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", relPath, err)
	}
	return data, nil
}

// Exists reports whether relPath already exists under Root.
func (s *Store) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.Root, relPath))
	return err == nil
}

// WriteAtomic writes data to relPath under Root using a temp-file-then-
// rename within the same directory, so readers never observe a partial
// file.
func (s *Store) WriteAtomic(relPath string, data []byte) (string, error) {
	full := filepath.Join(s.Root, relPath)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename %s to %s: %w", tmpName, full, err)
	}
	return full, nil
}

func slugify(s string) string {
	lower := strings.ToLower(s)
	slug := nonAlnum.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:8]
}
