package digistrip

import (
	"encoding/binary"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// writeSampleTree creates a segment output tree with one tiny PNG per class.
func writeSampleTree(t *testing.T, classes ...string) string {
	t.Helper()
	root := t.TempDir()

	img := image.NewGray(image.Rect(0, 0, SegmentSize, SegmentSize))
	for _, class := range classes {
		dir := filepath.Join(root, class)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := SaveImage(filepath.Join(dir, "segment_0000.png"), img, defaultJPEGQuality); err != nil {
			t.Fatal(err)
		}
	}

	// A stray non-image file must be ignored by the scan.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	return root
}

func TestFromSegmentDirs(t *testing.T) {
	root := writeSampleTree(t, "A", "B")

	data, err := FromSegmentDirs(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 {
		t.Fatalf("got %d samples, want 2", len(data))
	}
	if data[0].Label != "A" || data[1].Label != "B" {
		t.Errorf("got labels %q and %q, want A and B", data[0].Label, data[1].Label)
	}
}

func TestWriteTFRecord(t *testing.T) {
	tfRecordLabelMap = nil
	tfRecordNextLabelID = 1

	root := writeSampleTree(t, "A")
	data, err := FromSegmentDirs(root)
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	recordPath := filepath.Join(out, "train.tfrecord")
	mapPath := filepath.Join(out, "label_map.pbtxt")
	if err := WriteTFRecord(recordPath, mapPath, data, 1); err != nil {
		t.Fatal(err)
	}

	// Unpack the record framing: 8-byte length, 4-byte length CRC, payload.
	raw, err := os.ReadFile(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) < 12 {
		t.Fatalf("record file holds %d bytes, too short for one record", len(raw))
	}
	n := binary.LittleEndian.Uint64(raw[:8])
	if uint64(len(raw)) < 12+n+4 {
		t.Fatalf("record payload of %d bytes is truncated", n)
	}

	var tfExample tensorflow.Example
	if err := proto.Unmarshal(raw[12:12+n], &tfExample); err != nil {
		t.Fatal("payload is not a tensorflow.Example: ", err)
	}

	features := tfExample.GetFeatures().GetFeature()
	if got := features["image/class/text"].GetBytesList().Value; len(got) != 1 || string(got[0]) != "A" {
		t.Errorf("image/class/text is %q, want A", got)
	}
	if got := features["image/class/label"].GetInt64List().Value; len(got) != 1 || got[0] != 1 {
		t.Errorf("image/class/label is %v, want [1]", got)
	}
	if got := features["image/width"].GetInt64List().Value; len(got) != 1 || got[0] != SegmentSize {
		t.Errorf("image/width is %v, want [%d]", got, SegmentSize)
	}
	if got := features["image/format"].GetBytesList().Value; len(got) != 1 || string(got[0]) != "png" {
		t.Errorf("image/format is %q, want png", got)
	}
	if got := features["image/encoded"].GetBytesList().Value; len(got) != 1 || len(got[0]) == 0 {
		t.Error("image/encoded is empty")
	}

	// The label map was persisted alongside the records.
	labelMap, maxID, err := loadTFRecordLabelMap(mapPath)
	if err != nil {
		t.Fatal(err)
	}
	if labelMap["A"] != 1 || maxID != 1 {
		t.Errorf("label map %v with max ID %d, want A=1", labelMap, maxID)
	}
}

func TestLabelMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label_map.pbtxt")

	want := map[string]int32{"A": 1, "8": 2, "Z": 3}
	if err := saveTFRecordLabelMap(path, want); err != nil {
		t.Fatal(err)
	}

	got, maxID, err := loadTFRecordLabelMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if maxID != 3 {
		t.Errorf("max ID %d, want 3", maxID)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("entry %q: got %d, want %d", k, got[k], v)
		}
	}
}

func TestLoadLabelMapMissingFile(t *testing.T) {
	_, _, err := loadTFRecordLabelMap(filepath.Join(t.TempDir(), "absent.pbtxt"))
	if !os.IsNotExist(err) {
		t.Errorf("got %v, want a does-not-exist error", err)
	}
}
