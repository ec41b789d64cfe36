// Extracts perspective-marked five-character strips from photographs into
// binarized 28x28 training segments, and exports saved segment trees as
// TFRecord datasets.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"digistrip"
)

var (
	imagePath    string // The input photograph.
	pointsArg    string // The four marked corner points.
	label        string // The five-character label for the strip.
	outRootPath  string // The root of the per-character output tree.
	stripOutPath string // Optional path to save the finished strip to.
	jpegQuality  int    // The quality for JPEG outputs.

	exportTFRecord       bool   // Export a segment tree instead of extracting.
	tfRecordFilePath     string // The TFRecord output file.
	tfRecordLabelMapPath string // The TFRecord label map file.
	numShardFiles        int    // The number of shard files to create.

	points [4]digistrip.Point
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  extract options:\t-image <file> -points \"x,y x,y x,y x,y\""+
				" -label <5 chars> -out <dir>")
		_, _ = fmt.Fprintln(os.Stderr, "  export options:\t-export-tfrecord -out <dir>"+
				" -tfrecord-out <file> -tfrecord-label-map-file <file> [-num-shards]")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Extraction arguments.
	flag.StringVar(&imagePath, "image", imagePath,
		"The `path` to the source photograph")
	flag.StringVar(&pointsArg, "points", pointsArg,
		"The four marked corners as space-separated \"x,y\" `pairs`, in any order")
	flag.StringVar(&label, "label", label,
		"The 5-character `label`, one character per segment, left to right")
	flag.StringVar(&outRootPath, "out", outRootPath,
		"The `path` to the output root; segments are written to per-character subdirectories")
	flag.StringVar(&stripOutPath, "strip-out", stripOutPath,
		"An optional `path` to also save the final 140x28 strip to")
	flag.IntVar(&jpegQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	// Export arguments.
	flag.BoolVar(&exportTFRecord, "export-tfrecord", exportTFRecord,
		"Export the segment tree under -out as a TFRecord dataset instead of extracting")
	flag.StringVar(&tfRecordFilePath, "tfrecord-out", tfRecordFilePath,
		"The TFRecord output file `path`")
	flag.StringVar(&tfRecordLabelMapPath, "tfrecord-label-map-file", tfRecordLabelMapPath,
		"The TFRecord label map file `path`")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of shard files to create")

	// Parse and validate flags.
	flag.Parse()

	if outRootPath == "" {
		printUsageAndExit("Missing output root path argument")
	}
	outRootPath = filepath.Clean(outRootPath)

	if exportTFRecord {
		if tfRecordFilePath == "" || tfRecordLabelMapPath == "" {
			printUsageAndExit("Missing TFRecord output path argument")
		}
		tfRecordFilePath = filepath.Clean(tfRecordFilePath)
		tfRecordLabelMapPath = filepath.Clean(tfRecordLabelMapPath)
		return
	}

	if imagePath == "" {
		printUsageAndExit("Missing image input path argument")
	}
	imagePath = filepath.Clean(imagePath)

	if len([]rune(label)) != digistrip.NumSegments {
		printUsageAndExit("The label must be exactly 5 characters: ", label)
	}

	var err error
	if points, err = parsePoints(pointsArg); err != nil {
		printUsageAndExit("Invalid -points value: ", err)
	}

	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = 90
		log.Print("Invalid JPEG quality, setting it to ", jpegQuality)
	}
}

// parsePoints parses four space-separated "x,y" pairs.
func parsePoints(s string) ([4]digistrip.Point, error) {
	var pts [4]digistrip.Point

	fields := strings.Fields(s)
	if len(fields) != 4 {
		return pts, fmt.Errorf("want 4 points, got %d", len(fields))
	}

	for i, field := range fields {
		xy := strings.Split(field, ",")
		if len(xy) != 2 {
			return pts, fmt.Errorf("invalid point %q", field)
		}

		var err error
		if pts[i].X, err = strconv.ParseFloat(xy[0], 64); err != nil {
			return pts, fmt.Errorf("invalid coordinate in %q: %v", field, err)
		}
		if pts[i].Y, err = strconv.ParseFloat(xy[1], 64); err != nil {
			return pts, fmt.Errorf("invalid coordinate in %q: %v", field, err)
		}
	}

	return pts, nil
}

func main() {
	if exportTFRecord {
		data, err := digistrip.FromSegmentDirs(outRootPath)
		if err != nil {
			log.Fatal("Failed to scan the segment tree: ", err)
		}
		if err := digistrip.WriteTFRecord(tfRecordFilePath, tfRecordLabelMapPath,
				data, numShardFiles); err != nil {
			log.Fatal("TFRecord export failed: ", err)
		}
		log.Printf("Successfully wrote %d samples to %s", len(data), tfRecordFilePath)
		return
	}

	img, format, err := digistrip.LoadImage(imagePath)
	if err != nil {
		log.Fatalf("Failed to load %q: %v", imagePath, err)
	}
	log.Printf("Loaded %s image %q", format, imagePath)

	result, err := digistrip.Extract(img, points)
	if err != nil {
		log.Fatal("Extraction failed: ", err)
	}

	if stripOutPath != "" {
		if err := digistrip.SaveImage(stripOutPath, result.Strip, jpegQuality); err != nil {
			log.Fatalf("Failed to save the strip to %q: %v", stripOutPath, err)
		}
		log.Print("Saved the strip to ", stripOutPath)
	}

	if err := digistrip.SaveSegments(outRootPath, label, result.Segments); err != nil {
		var saveErr *digistrip.SaveError
		if errors.As(err, &saveErr) {
			log.Fatalf("Save failed at segment %d, segments %v were written: %v",
				saveErr.Index, saveErr.Written, saveErr.Err)
		}
		log.Fatal("Save failed: ", err)
	}

	log.Printf("Saved %d segments for label %q under %s",
		digistrip.NumSegments, label, outRootPath)
}
