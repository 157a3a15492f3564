// Package fileops handles the import directory bookkeeping: discovering
// import files and archiving them after a successful run.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// SuccessDirName is the subdirectory processed files are moved into.
const SuccessDirName = "success"

// ListImportFiles returns the CSV files directly under dir, sorted by name so
// repeated runs process them in the same order.
func ListImportFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.FileError(errs.CodeDirectoryError, dir, err)
		}
		if os.IsPermission(err) {
			return nil, errs.FileError(errs.CodeFilePermission, dir, err)
		}
		return nil, errs.FileError(errs.CodeDirectoryError, dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// MoveToSuccess archives processed files into dir/success/, prefixing each
// name with the run timestamp so repeated imports of a file never collide.
// It returns the destination paths.
func MoveToSuccess(files []string, now time.Time) ([]string, error) {
	log := logger.GetGlobalLogger().WithComponent("fileops")
	prefix := now.Format("20060102T150405")

	var moved []string
	for _, file := range files {
		dir := filepath.Join(filepath.Dir(file), SuccessDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return moved, errs.FileError(errs.CodeDirectoryError, dir, err)
		}
		dest := filepath.Join(dir, prefix+"_"+filepath.Base(file))
		if err := os.Rename(file, dest); err != nil {
			return moved, errs.FileError(errs.CodeDirectoryError, file, err)
		}
		log.WithFields(logger.Fields{"from": file, "to": dest}).Debug("import file archived")
		moved = append(moved, dest)
	}
	return moved, nil
}

// FormatFileList renders paths as an enumerated list for operator output.
func FormatFileList(files []string) string {
	var b strings.Builder
	for i, file := range files {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, file)
	}
	return b.String()
}
