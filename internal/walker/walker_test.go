package walker

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectArtistTracksBasic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "01-song.mp3"))
	writeFile(t, filepath.Join(root, "cover.jpg"))
	writeFile(t, filepath.Join(root, ".hidden.mp3"))

	var skips []string
	cands, err := CollectArtistTracks(root, Options{Recursive: true, MaxDepth: 4}, func(path, reason string) {
		skips = append(skips, reason)
	})
	if err != nil {
		t.Fatalf("CollectArtistTracks: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(cands), cands)
	}
	if cands[0].Ext != "mp3" {
		t.Errorf("Ext = %q", cands[0].Ext)
	}

	foundUnsupported, foundHidden := false, false
	for _, r := range skips {
		if r == "unsupported-extension:jpg" {
			foundUnsupported = true
		}
		if r == "hidden-path" {
			foundHidden = true
		}
	}
	if !foundUnsupported || !foundHidden {
		t.Errorf("skip reasons missing, got %v", skips)
	}
}

func TestCollectArtistTracksDepthExceeded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "c", "d", "deep.mp3"))

	var skips []string
	cands, err := CollectArtistTracks(root, Options{Recursive: true, MaxDepth: 2}, func(path, reason string) {
		skips = append(skips, reason)
	})
	if err != nil {
		t.Fatalf("CollectArtistTracks: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates past max depth, got %+v", cands)
	}

	found := false
	for _, r := range skips {
		if r == "depth-exceeded:2" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected depth-exceeded:2 skip, got %v", skips)
	}
}

func TestCollectArtistTracksNonRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.mp3"))
	writeFile(t, filepath.Join(root, "sub", "nested.mp3"))

	cands, err := CollectArtistTracks(root, Options{Recursive: false}, func(path, reason string) {})
	if err != nil {
		t.Fatalf("CollectArtistTracks: %v", err)
	}
	if len(cands) != 1 || cands[0].Path != filepath.Join(root, "top.mp3") {
		t.Fatalf("expected only top-level file, got %+v", cands)
	}
}

func TestSortArtistDirs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"Zebra", "apple", "Banana"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	dirs, err := SortArtistDirs(root)
	if err != nil {
		t.Fatalf("SortArtistDirs: %v", err)
	}
	want := []string{"Banana", "Zebra", "apple"} // case-sensitive ascending: uppercase sorts before lowercase
	if len(dirs) != len(want) {
		t.Fatalf("got %v, want %v", dirs, want)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("dirs[%d] = %q, want %q", i, dirs[i], want[i])
		}
	}
}
