// Package scanner implements a single-flight walk of the library root that
// reads tags, dedupes hardlinked/duplicate files, groups tracks into virtual
// albums, and sweeps anything no longer present. Grounded on the teacher's
// internal/scanner/scan_music.go (cachedFindOrCreateArtist/Album, per-scan
// in-memory grouping) and scanner.go's ProgressFunc/ScanResult shape,
// generalized from CineVault's ffprobe-driven hierarchy build to the Tag
// Reader + Library Walker + repository pipeline this domain uses instead.
package scanner

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/models"
	"github.com/selfhosted/crate/internal/normalizer"
	"github.com/selfhosted/crate/internal/repository"
	"github.com/selfhosted/crate/internal/tagreader"
	"github.com/selfhosted/crate/internal/walker"
)

// DefaultMaxDepth is the walk depth used for runs that don't come from an
// HTTP request with its own recursive/maxDepth choice (the cron scheduler,
// the filesystem watcher) — deep enough for Artist/Album/disc-subfolder
// layouts. The walker follows directory symlinks and keeps no visited set, so
// this depth cap is also what bounds a walk through a symlink loop.
const DefaultMaxDepth = 8

type Scanner struct {
	artists     *repository.ArtistRepository
	albums      *repository.AlbumRepository
	tracks      *repository.TrackRepository
	fileIndex   *repository.FileIndexRepository
	scanState   *repository.ScanStateRepository
	scanSkipped *repository.ScanSkippedRepository
	musicDir    string

	running runFlag
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// runFlag is a tiny mutex-backed bool with CompareAndSwap semantics,
// enforcing that only one scan runs at a time.
type runFlag struct {
	mu  sync.Mutex
	set bool
}

func (a *runFlag) CompareAndSwap(old, new bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.set != old {
		return false
	}
	a.set = new
	return true
}

func (a *runFlag) Store(v bool) {
	a.mu.Lock()
	a.set = v
	a.mu.Unlock()
}

func (a *runFlag) Load() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set
}

func New(
	artists *repository.ArtistRepository,
	albums *repository.AlbumRepository,
	tracks *repository.TrackRepository,
	fileIndex *repository.FileIndexRepository,
	scanState *repository.ScanStateRepository,
	scanSkipped *repository.ScanSkippedRepository,
	musicDir string,
) *Scanner {
	return &Scanner{
		artists:     artists,
		albums:      albums,
		tracks:      tracks,
		fileIndex:   fileIndex,
		scanState:   scanState,
		scanSkipped: scanSkipped,
		musicDir:    musicDir,
	}
}

func (s *Scanner) IsRunning() bool { return s.running.Load() }

// Cancel requests cancellation of the in-progress scan, if any. The Scanner
// checks for cancellation between artist directories and between files
// within one directory, never mid-file.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// RunFull scans every artist directory under the library root and, on
// completion, soft-deletes anything not seen this run.
func (s *Scanner) RunFull(ctx context.Context, opts walker.Options) error {
	return s.run(ctx, "", opts)
}

// RunArtist rescans a single artist directory. An artist-scoped run never
// triggers the library-wide soft-delete sweep, so albums/tracks belonging
// to artists outside the scanned directory are left untouched.
func (s *Scanner) RunArtist(ctx context.Context, artistDirName string, opts walker.Options) error {
	if strings.TrimSpace(artistDirName) == "" {
		return apperr.NewValidation("artist name is required")
	}
	return s.run(ctx, artistDirName, opts)
}

type groupedTrack struct {
	candidate walker.Candidate
	title     string
}

func (s *Scanner) run(parentCtx context.Context, artistFilter string, opts walker.Options) error {
	if !s.running.CompareAndSwap(false, true) {
		return apperr.NewConflict("a scan is already running")
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(parentCtx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	scanStartedAt := time.Now()
	fullSweep := artistFilter == ""

	if err := s.scanState.Start(scanStartedAt); err != nil {
		return apperr.Wrap(apperr.Internal, "start scan state", err)
	}
	if err := s.scanSkipped.ClearBefore(scanStartedAt); err != nil {
		return apperr.Wrap(apperr.Internal, "clear previous skip rows", err)
	}

	histogram := map[string]int{}
	var scannedFiles, skippedFiles, artistsSeen, albumsSeen int

	recordSkip := func(path, rawReason string) {
		reason := canonicalizeSkipReason(rawReason)
		histogram[reason]++
		skippedFiles++
		if err := s.scanSkipped.Insert(scanStartedAt, path, reason); err != nil {
			// Best-effort: a failed skip-row insert shouldn't abort the scan.
			histogram["internal:skip-insert-failed"]++
		}
	}

	var artistDirs []string
	if artistFilter != "" {
		artistDirs = []string{artistFilter}
	} else {
		dirs, err := walker.SortArtistDirs(s.musicDir)
		if err != nil {
			_ = s.scanState.SetError(err.Error(), time.Now())
			return apperr.Wrap(apperr.Internal, "list artist directories", err)
		}
		artistDirs = dirs
	}

	for _, dirName := range artistDirs {
		if ctx.Err() != nil {
			return s.scanState.Finish(models.ScanStatusCancelled, "", histogram, time.Now())
		}

		artistPath := filepath.Join(s.musicDir, dirName)
		info, err := os.Stat(artistPath)
		if err != nil || !info.IsDir() {
			recordSkip(artistPath, "unreadable-directory")
			continue
		}

		artist, err := s.artists.UpsertByName(dirName, scanStartedAt)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "upsert artist", err)
		}
		artistsSeen++

		candidates, err := walker.CollectArtistTracks(artistPath, opts, recordSkip)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "walk artist directory", err)
		}

		groups := map[string][]groupedTrack{}
		seenDedupe := map[string]bool{}

		for _, cand := range candidates {
			if ctx.Err() != nil {
				return s.scanState.Finish(models.ScanStatusCancelled, "", histogram, time.Now())
			}

			fi, err := s.resolveFileIndex(cand, scanStartedAt)
			if err != nil {
				recordSkip(cand.Path, "parse-error")
				continue
			}

			if fi.TagAlbum == "" {
				recordSkip(cand.Path, "missing-album-tag")
				continue
			}

			albumArtist := fi.TagAlbumArtist
			if albumArtist == "" {
				albumArtist = fi.TagArtist
			}
			if albumArtist == "" {
				recordSkip(cand.Path, "missing-artist-tag")
				continue
			}

			if fi.TagAlbumArtist != "" && dirName != "" &&
				normalizer.NormalizeTitle(dirName) != normalizer.NormalizeTitle(fi.TagAlbumArtist) {
				recordSkip(cand.Path, "missing-artist-tag:mismatch")
				continue
			}

			key := dedupeKey(cand)
			if seenDedupe[key] {
				recordSkip(cand.Path, "deduped")
				continue
			}
			seenDedupe[key] = true

			groupKey := normalizer.NormalizeTitle(albumArtist) + "::" + normalizer.NormalizeTitle(fi.TagAlbum)
			groups[groupKey] = append(groups[groupKey], groupedTrack{candidate: cand, title: fi.TagAlbum})
			scannedFiles++
		}

		if err := s.commitGroups(artist, artistPath, groups, scanStartedAt, &albumsSeen); err != nil {
			return err
		}

		_ = s.scanState.UpdateProgress(artistPath, scannedFiles, skippedFiles, artistsSeen, albumsSeen)
	}

	if fullSweep {
		if _, err := s.tracks.SoftDeleteNotSeenSince(scanStartedAt); err != nil {
			return apperr.Wrap(apperr.Internal, "sweep tracks", err)
		}
		if _, err := s.albums.SoftDeleteNotSeenSince(scanStartedAt, nil); err != nil {
			return apperr.Wrap(apperr.Internal, "sweep albums", err)
		}
		if _, err := s.artists.SoftDeleteNotSeenSince(scanStartedAt); err != nil {
			return apperr.Wrap(apperr.Internal, "sweep artists", err)
		}
	}

	if _, err := s.fileIndex.DeleteStale(scanStartedAt); err != nil {
		return apperr.Wrap(apperr.Internal, "prune stale file index rows", err)
	}

	return s.scanState.Finish(models.ScanStatusIdle, "", histogram, time.Now())
}

// commitGroups writes one album + its tracks per groupKey discovered in an
// artist directory.
func (s *Scanner) commitGroups(artist *models.Artist, artistPath string, groups map[string][]groupedTrack, scanStartedAt time.Time, albumsSeen *int) error {
	for _, tracksInGroup := range groups {
		albumTitle := tracksInGroup[0].title
		virtualPath := virtualAlbumPath(artistPath, albumTitle)

		formatsSeen := map[string]bool{}
		var lastMtime time.Time
		for _, t := range tracksInGroup {
			formatsSeen[t.candidate.Ext] = true
			if t.candidate.Mtime.After(lastMtime) {
				lastMtime = t.candidate.Mtime
			}
		}
		formats := make([]string, 0, len(formatsSeen))
		for f := range formatsSeen {
			formats = append(formats, f)
		}
		sort.Strings(formats)

		album, err := s.albums.UpsertByPath(artist.ID, virtualPath, albumTitle, formats, len(tracksInGroup), lastMtime, scanStartedAt)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "upsert album", err)
		}
		*albumsSeen++

		for _, t := range tracksInGroup {
			if err := s.tracks.UpsertByPath(album.ID, t.candidate.Path, t.candidate.Ext, t.candidate.Mtime, scanStartedAt); err != nil {
				return apperr.Wrap(apperr.Internal, "upsert track", err)
			}
		}
	}
	return nil
}

// resolveFileIndex returns cached tag/identity data when the candidate's
// mtime and size match what's on record, otherwise re-reads tags from disk
// and upserts the cache row.
func (s *Scanner) resolveFileIndex(cand walker.Candidate, scanStartedAt time.Time) (*models.FileIndex, error) {
	cached, err := s.fileIndex.Get(cand.Path)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.Mtime.Equal(cand.Mtime) && cached.Size == cand.Size {
		if err := s.fileIndex.TouchLastScan(cand.Path, scanStartedAt); err != nil {
			return nil, err
		}
		cached.LastScanAt = scanStartedAt
		return cached, nil
	}

	tags, _ := tagreader.Read(cand.Path, cand.Ext)
	fi := &models.FileIndex{
		Path:       cand.Path,
		Mtime:      cand.Mtime,
		Size:       cand.Size,
		InodeKey:   cand.InodeKey,
		LastScanAt: scanStartedAt,
	}
	if tags != nil {
		fi.TagAlbum = tags.Album
		fi.TagAlbumArtist = tags.AlbumArtist
		fi.TagArtist = tags.Artist
		fi.TagTitle = tags.Title
		fi.TagYear = tags.Year
	}
	if err := s.fileIndex.Upsert(fi); err != nil {
		return nil, err
	}
	return fi, nil
}

// dedupeKey returns the admission-filter dedup key: inode identity when the
// filesystem provides one, otherwise a fallback built from size, mtime, and
// a short hash of the path.
func dedupeKey(cand walker.Candidate) string {
	if cand.InodeKey != "" {
		return "inode:" + cand.InodeKey
	}
	return fmt.Sprintf("fallback:%d:%d:%s", cand.Size, cand.Mtime.Unix(), shortHash(cand.Path))
}

func shortHash(s string) string {
	return fmt.Sprintf("%08x", uint32(xxhash.Sum64String(filepath.Clean(s))))
}

// virtualAlbumPath builds the synthetic album identity
// "{artistPath}/.crate/{slug(albumTitle)}-{sha1(albumTitle)[0..8]}". It is
// never a real filesystem path.
func virtualAlbumPath(artistPath, albumTitle string) string {
	slug := normalizer.Slugify(albumTitle)
	sum := sha1.Sum([]byte(albumTitle))
	prefix := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("%s/.crate/%s-%s", artistPath, slug, prefix)
}

// canonicalizeSkipReason collapses raw walker/Scanner skip reasons into the
// stable buckets the skip histogram reports.
func canonicalizeSkipReason(reason string) string {
	switch {
	case reason == "missing-album-tag":
		return "missing album tag"
	case strings.HasPrefix(reason, "missing-artist-tag"):
		return "missing artist tag"
	case strings.HasPrefix(reason, "unsupported-extension"):
		return "unsupported extension"
	case strings.HasPrefix(reason, "unreadable"):
		return "unreadable"
	case strings.HasPrefix(reason, "deduped"):
		return "duplicate"
	case strings.HasPrefix(reason, "parse-error"):
		return "parse error"
	default:
		return reason
	}
}
