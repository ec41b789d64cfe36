package digistrip

// Filesystem helpers.

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions are the file extensions recognised as image inputs.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
}

// ImageFilesInDir returns the paths of all regular image files found
// directly in dirPath, sorted by name. Files are matched by extension
// against the supported image formats.
func ImageFilesInDir(dirPath string) (files []string, err error) {
	dirInfo, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}
	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dirPath)
	}
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access %q: %v", dirPath, err)
	}
	defer closeWithErrCheck(dir, &err)

	// Iterate over all files in dir.
	files = make([]string, 0, 100)
	var fileList []os.FileInfo
	for fileList, err = dir.Readdir(100); len(fileList) > 0; fileList, err = dir.Readdir(100) {
		for _, file := range fileList {
			name := file.Name()
			// Must be a regular file or a symlink and have a supported extension.
			if (!file.Mode().IsRegular() && (file.Mode()&os.ModeSymlink == 0)) ||
					!imageExtensions[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			files = append(files, filepath.Join(dirPath, name))
		}
	}
	if err != nil && err != io.EOF {
		log.Printf("Failed to access some files in %q: %v", dirPath, err)
	}
	err = nil

	sort.Strings(files)
	return files, nil
}

// readFile reads the entire file at path.
func readFile(path string) (data []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(f, &err)

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil),
// e is set to that error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
