package digistrip

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImageFilesInDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "c.webp", "notes.txt", "d.png.bak"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ImageFilesInDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "c.webp"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: got %q, want %q", i, files[i], want[i])
		}
	}
}

func TestImageFilesInDirMissing(t *testing.T) {
	if _, err := ImageFilesInDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("want an error for a missing directory")
	}
}

func TestImageFilesInDirNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ImageFilesInDir(path)
	if err == nil {
		t.Fatal("want an error for a non-directory path")
	}
	if !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("error %q does not name the cause", err)
	}
}
