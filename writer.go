package digistrip

// Segment output functionality.

import (
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SaveError reports a failed segment save. Earlier segments may already have
// been written; Written lists their indices so the caller can tell which
// files exist. Nothing is rolled back.
type SaveError struct {
	Index   int   // the segment index that failed
	Written []int // segment indices persisted before the failure
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save segment %d (%d of %d written): %v",
		e.Index, len(e.Written), NumSegments, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// SaveSegments writes each segment as a PNG under root, in a subdirectory
// named after the corresponding label character, creating directories as
// needed. Filenames carry a fresh random stem so repeated saves with the
// same label append new files and never overwrite earlier ones.
//
// The label must be exactly NumSegments characters, one per segment. Any
// filesystem failure is returned as a *SaveError.
func SaveSegments(root, label string, segments [NumSegments]*image.Gray) error {
	chars := []rune(label)
	if len(chars) != NumSegments {
		return fmt.Errorf("label %q must be exactly %d characters", label, NumSegments)
	}

	var written []int
	for i, segment := range segments {
		dir := filepath.Join(root, string(chars[i]))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &SaveError{Index: i, Written: written, Err: err}
		}

		path := filepath.Join(dir, "segment_"+shortID()+".png")
		if err := SaveImage(path, segment, defaultJPEGQuality); err != nil {
			return &SaveError{Index: i, Written: written, Err: err}
		}
		written = append(written, i)
	}

	return nil
}

// shortID returns an 8-hex-digit random identifier.
func shortID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}
