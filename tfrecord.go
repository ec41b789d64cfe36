package digistrip

// TFRecord dataset export functionality.

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// LabeledImage is one training sample: a segment image file and the
// character class it belongs to.
type LabeledImage struct {
	FilePath string
	Label    string
}

var (
	tfRecordLabelMap    map[string]int32 // The active label mappings.
	tfRecordNextLabelID int32 = 1        // The ID for the next label mapping.
)

// FromSegmentDirs scans an output tree produced by SaveSegments: every
// immediate subdirectory of root is a class named by its label character and
// every image file inside it is one sample of that class.
func FromSegmentDirs(root string) ([]LabeledImage, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read dataset root %q: %v", root, err)
	}

	var data []LabeledImage
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		files, err := ImageFilesInDir(filepath.Join(root, entry.Name()))
		if err != nil {
			log.Printf("Skipping class directory %q: %v", entry.Name(), err)
			continue
		}
		for _, path := range files {
			data = append(data, LabeledImage{FilePath: path, Label: entry.Name()})
		}
	}

	sort.Slice(data, func(i, j int) bool { return data[i].FilePath < data[j].FilePath })
	log.Printf("Found %d samples under %q", len(data), root)
	return data, nil
}

// toTFRecord converts a single sample to its TFRecord feature map.
func toTFRecord(sample LabeledImage) (map[string]interface{}, error) {
	// Get the image width and height.
	img, format, err := decodeImageConfig(sample.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}

	// Read the image data.
	imgData, err := readFile(sample.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	f := make(map[string]interface{}, 8)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = sample.FilePath
	f["image/source_id"] = sample.FilePath
	f["image/encoded"] = imgData
	f["image/format"] = format
	f["image/class/text"] = sample.Label

	// Assign the ID for the string label, selecting a new one if no mapping
	// exists.
	id := int64(tfRecordLabelMap[sample.Label])
	if id == 0 {
		tfRecordLabelMap[sample.Label] = tfRecordNextLabelID
		id = int64(tfRecordNextLabelID)
		tfRecordNextLabelID++
	}
	f["image/class/label"] = id

	return f, nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write
// for the samples to one or more TFRecord files stored under recordFilePath
// (with suffixes added when numShards > 1).
//
// A label map in prototxt item form is maintained at labelMapPath: an
// existing map is extended so class IDs stay stable across export runs.
func WriteTFRecord(recordFilePath, labelMapPath string, data []LabeledImage,
		numShards int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	if tfRecordLabelMap == nil {
		// Try to load an existing label map. It is not an error if the file
		// does not exist.
		if labelMap, maxID, err := loadTFRecordLabelMap(labelMapPath); err == nil {
			log.Print("Label map loaded successfully")
			tfRecordLabelMap = labelMap
			tfRecordNextLabelID = maxID + 1
		} else if os.IsNotExist(err) {
			log.Print("Creating a new label map")
			tfRecordLabelMap = make(map[string]int32)
			tfRecordNextLabelID = 1
		} else {
			return fmt.Errorf("failed to read the label map from %q: %v", labelMapPath, err)
		}
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1

	// Convert and serialise one sample at a time.
	for i, sample := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			// Close the previous shard file.
			if shardFile != nil {
				_ = shardFile.Close()
				shardFile = nil
			}

			// Create the new shard file.
			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		// Convert the sample to an example.
		features, err := toTFRecord(sample)
		if err != nil {
			log.Printf("Failed to convert %q: %v", sample.FilePath, err)
			continue
		}
		tfExample := example.New(features)

		// Write the example.
		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			log.Print("Failed to write example: ", err)
			break
		}
	}

	if shardFile != nil {
		shardFile.Close()
	}

	return saveTFRecordLabelMap(labelMapPath, tfRecordLabelMap)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord
// to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes the labelMap to path in prototxt item form,
// ordered by ID.
func saveTFRecordLabelMap(path string, labelMap map[string]int32) error {
	names := make([]string, 0, len(labelMap))
	for k := range labelMap {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return labelMap[names[i]] < labelMap[names[j]] })

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer file.Close()

	for _, name := range names {
		_, err = fmt.Fprintf(file, "item {\n  name: %s\n  id: %d\n}\n",
			strconv.Quote(name), labelMap[name])
		if err != nil {
			return fmt.Errorf("failed to write the label map %q: %v", path, err)
		}
	}

	return nil
}

// loadTFRecordLabelMap loads the label map from path. It also returns the
// largest ID value encountered in the map.
//
// If an error occurs because the file does not exist, then os.IsNotExist
// will return true for the error.
func loadTFRecordLabelMap(path string) (map[string]int32, int32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	labelMap := make(map[string]int32)
	var maxID int32
	var name string
	haveName := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "name:"):
			name, err = strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "name:")))
			if err != nil {
				return nil, 0, fmt.Errorf("invalid name entry %q: %v", line, err)
			}
			haveName = true
		case strings.HasPrefix(line, "id:"):
			id, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "id:")))
			if err != nil || id <= 0 || !haveName || name == "" {
				return nil, 0, fmt.Errorf("invalid entry: %s: %d", name, id)
			}
			labelMap[name] = int32(id)
			if int32(id) > maxID {
				maxID = int32(id)
			}
			haveName = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	return labelMap, maxID, nil
}
