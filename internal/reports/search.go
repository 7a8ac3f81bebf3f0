// Package reports finds the PDF reports of a directory tree.
package reports

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

// FileInfo describes one report file.
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Search walks directories for PDF reports.
type Search struct {
	maxFileSize int64
}

// NewSearch creates a search skipping files larger than maxFileSize. Zero
// disables the size check.
func NewSearch(maxFileSize int64) *Search {
	return &Search{maxFileSize: maxFileSize}
}

// Find lists the PDF files below directory whose name matches query, sorted
// by path. Hidden directories, empty and oversized files are skipped; limit
// bounds the result when positive.
func (s *Search) Find(directory, query string, limit int) ([]FileInfo, error) {
	if directory == "" {
		return nil, errors.New(errors.ErrorTypeInvalidInput, "directory cannot be empty")
	}
	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidInput, err)
	}
	info, err := os.Stat(absDirectory)
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrorTypeResourceNotFound, "directory does not exist: %s", directory)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrorTypeInvalidInput, "not a directory: %s", directory)
	}
	realDirectory, err := filepath.EvalSymlinks(absDirectory)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidInput, err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var files []FileInfo
	err = filepath.WalkDir(absDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
				return filepath.SkipDir
			}
			return nil
		}
		if limit > 0 && len(files) >= limit {
			return filepath.SkipAll
		}
		if !IsPDF(d.Name()) || !MatchesQuery(d.Name(), query) {
			return nil
		}
		if !within(path, realDirectory) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() == 0 || (s.maxFileSize > 0 && fi.Size() > s.maxFileSize) {
			return nil //nolint:nilerr // invalid files are skipped
		}
		files = append(files, FileInfo{
			Path:         path,
			Name:         fi.Name(),
			Size:         fi.Size(),
			ModifiedTime: fi.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, err).WithContext("walking " + directory)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Paths returns the paths of files.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// within reports whether path resolves inside directory, symlinks followed.
func within(path, directory string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(directory, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsPDF checks if a file name has a PDF extension
func IsPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// MatchesQuery matches a file name against a lower-case query: a substring
// of the name, or every query word contained in some word of the name.
func MatchesQuery(name, query string) bool {
	if query == "" {
		return true
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, query) {
		return true
	}

	nameWords := splitWords(strings.TrimSuffix(lower, ".pdf"))
	for _, q := range splitWords(query) {
		found := false
		for _, w := range nameWords {
			if strings.Contains(w, q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
