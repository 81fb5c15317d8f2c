// Package walker lists the documents directly beneath the watched directory.
package walker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileInfo holds metadata about a single document found in the directory.
type FileInfo struct {
	Path        string // Absolute path on disk.
	Name        string // Base name.
	Size        int64  // File size in bytes.
	Kind        string // Document type display name.
	ContentHash string // SHA-256 hex digest of the file content.
}

// Config controls the behaviour of List.
type Config struct {
	Dir        string   // Directory to list. Subdirectories are not visited.
	Extensions []string // Recognized document extensions, with leading dot.
	Exclude    []string // Glob patterns matched against the file name.
}

// Listing is the result of one directory scan.
type Listing struct {
	// Files are the readable documents, sorted by path.
	Files []FileInfo
	// Unreadable maps documents that are present but could not be hashed
	// to the reason. They still count as present.
	Unreadable map[string]error
}

// Present reports whether path was seen in the listing, readable or not.
func (l *Listing) Present(path string) bool {
	if _, ok := l.Unreadable[path]; ok {
		return true
	}
	i := sort.Search(len(l.Files), func(i int) bool { return l.Files[i].Path >= path })
	return i < len(l.Files) && l.Files[i].Path == path
}

// List scans cfg.Dir non-recursively and hashes every file with a
// recognized extension. Only a missing or unreadable directory is an error.
func List(cfg Config) (*Listing, error) {
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve dir: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("walker: read dir: %w", err)
	}

	listing := &Listing{Unreadable: make(map[string]error)}
	for _, entry := range entries {
		name := entry.Name()
		if !MatchesExtension(name, cfg.Extensions) || MatchesExclude(name, cfg.Exclude) {
			continue
		}

		path := filepath.Join(root, name)

		// Stat follows symlinks so linked documents are indexed too. A
		// dangling link, or a file deleted mid-scan, is absent.
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			listing.Unreadable[path] = err
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		hash, err := HashFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			listing.Unreadable[path] = err
			continue
		}

		listing.Files = append(listing.Files, FileInfo{
			Path:        path,
			Name:        name,
			Size:        info.Size(),
			Kind:        DetectKind(name),
			ContentHash: hash,
		})
	}

	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].Path < listing.Files[j].Path
	})
	return listing, nil
}

// HashFile computes the SHA-256 digest of the given file's full content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
