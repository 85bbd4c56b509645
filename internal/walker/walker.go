// Package walker implements a bounded-depth traversal of a single artist
// directory, producing candidate audio files with stat metadata and routing
// every non-audio entry to a skip callback instead of failing the scan.
// Grounded on the teacher's internal/scanner/scanner.go directory-walk loop
// (os.ReadDir, extension-set membership tests, skip-reason logging),
// narrowed from its multi-type (video/TV/music) walk down to the single
// audio extension set a music library needs.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// AudioExtensions is the admitted extension set for candidate files,
// lowercase and without the leading dot.
var AudioExtensions = map[string]bool{
	"flac": true,
	"mp3":  true,
	"m4a":  true,
	"aac":  true,
	"ogg":  true,
	"opus": true,
	"wav":  true,
	"aiff": true,
	"alac": true,
}

// Candidate is one admitted audio file with the stat metadata the Scanner
// needs for caching and deduplication.
type Candidate struct {
	Path     string
	Ext      string
	Mtime    time.Time
	Size     int64
	Inode    uint64
	Device   uint64
	InodeKey string // "" when the filesystem has no meaningful inode
}

// Options controls traversal depth.
type Options struct {
	Recursive bool
	MaxDepth  int
}

// OnSkip is invoked for every path that doesn't make it into the result,
// with a raw (not yet canonicalized) skip reason.
type OnSkip func(path, reason string)

// CollectArtistTracks walks artistPath and returns ordered candidate audio
// files. Traversal order within a directory is ascending by entry name (as
// os.ReadDir returns it); ordering
// across artist directories is the Scanner's responsibility, not this
// package's.
func CollectArtistTracks(artistPath string, opts Options, onSkip OnSkip) ([]Candidate, error) {
	var candidates []Candidate
	err := walk(artistPath, artistPath, 0, opts, onSkip, &candidates)
	return candidates, err
}

func walk(root, dir string, depth int, opts Options, onSkip OnSkip, out *[]Candidate) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		onSkip(dir, "unreadable-directory")
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if strings.HasPrefix(name, ".") {
			onSkip(path, "hidden-path")
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			onSkip(path, fmt.Sprintf("unreadable-path: %v", err))
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := os.Stat(path)
			if err != nil {
				onSkip(path, "broken-symlink")
				continue
			}
			info = resolved
		}

		if info.IsDir() {
			childDepth := depth + 1
			if !opts.Recursive {
				continue
			}
			if childDepth > opts.MaxDepth {
				onSkip(path, fmt.Sprintf("depth-exceeded:%d", opts.MaxDepth))
				continue
			}
			if err := walk(root, path, childDepth, opts, onSkip, out); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			onSkip(path, "unsupported-file-type")
			continue
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if !AudioExtensions[ext] {
			onSkip(path, fmt.Sprintf("unsupported-extension:%s", ext))
			continue
		}

		cand := Candidate{
			Path:  path,
			Ext:   ext,
			Mtime: info.ModTime(),
			Size:  info.Size(),
		}
		fillPlatformIdentity(&cand, info)

		*out = append(*out, cand)
	}

	return nil
}

// SortArtistDirs returns the entries of root's immediate children,
// directories only, in case-sensitive ascending name order — the order the
// Scanner processes top-level artist directories in.
func SortArtistDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
