package digistrip

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
)

func testSegments() [NumSegments]*image.Gray {
	var segments [NumSegments]*image.Gray
	for i := range segments {
		seg := image.NewGray(image.Rect(0, 0, SegmentSize, SegmentSize))
		for j := range seg.Pix {
			seg.Pix[j] = uint8(i * 50)
		}
		segments[i] = seg
	}
	return segments
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cannot read %q: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSaveSegments(t *testing.T) {
	root := t.TempDir()
	label := "A8B3Z"

	if err := SaveSegments(root, label, testSegments()); err != nil {
		t.Fatal(err)
	}

	var firstRun [][]string
	for _, c := range label {
		files := filesIn(t, filepath.Join(root, string(c)))
		if len(files) != 1 {
			t.Fatalf("directory %q holds %d files after one save, want 1", string(c), len(files))
		}
		firstRun = append(firstRun, files)
	}

	// A second save with the same label appends and never overwrites.
	if err := SaveSegments(root, label, testSegments()); err != nil {
		t.Fatal(err)
	}
	for i, c := range label {
		files := filesIn(t, filepath.Join(root, string(c)))
		if len(files) != 2 {
			t.Fatalf("directory %q holds %d files after two saves, want 2", string(c), len(files))
		}
		found := false
		for _, name := range files {
			if name == firstRun[i][0] {
				found = true
			}
		}
		if !found {
			t.Errorf("directory %q no longer holds the first save %q", string(c), firstRun[i][0])
		}
	}
}

func TestSaveSegmentsRepeatedCharacter(t *testing.T) {
	root := t.TempDir()

	if err := SaveSegments(root, "AABAA", testSegments()); err != nil {
		t.Fatal(err)
	}

	if got := len(filesIn(t, filepath.Join(root, "A"))); got != 4 {
		t.Errorf("directory A holds %d files, want 4", got)
	}
	if got := len(filesIn(t, filepath.Join(root, "B"))); got != 1 {
		t.Errorf("directory B holds %d files, want 1", got)
	}
}

func TestSaveSegmentsBadLabel(t *testing.T) {
	root := t.TempDir()

	for _, label := range []string{"", "ABCD", "ABCDEF"} {
		if err := SaveSegments(root, label, testSegments()); err == nil {
			t.Errorf("label %q: want an error", label)
		}
	}
}

func TestSaveSegmentsPartialFailure(t *testing.T) {
	root := t.TempDir()

	// A plain file where the second segment's directory belongs makes the
	// save fail after the first segment was written.
	if err := os.WriteFile(filepath.Join(root, "A"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := SaveSegments(root, "ZAXWV", testSegments())
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Fatalf("got %v, want a *SaveError", err)
	}
	if saveErr.Index != 1 {
		t.Errorf("failing index %d, want 1", saveErr.Index)
	}
	if len(saveErr.Written) != 1 || saveErr.Written[0] != 0 {
		t.Errorf("written indices %v, want [0]", saveErr.Written)
	}

	// The segment written before the failure is still on disk.
	if got := len(filesIn(t, filepath.Join(root, "Z"))); got != 1 {
		t.Errorf("directory Z holds %d files, want 1", got)
	}
}
