// Package templates resolves form template PDFs by normalized filename.
// The pipeline only requires "a readable local path to PDF bytes"; this
// directory-backed implementation satisfies that, and a remote
// fetch-and-cache store can replace it behind the same interface.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Store yields readable local paths for form template PDFs.
type Store interface {
	// Resolve returns a readable path for the given filename.
	Resolve(filename string) (string, error)
	// ResolveByCode returns a readable path for the form code, matching
	// "<code>.pdf" under filename normalization.
	ResolveByCode(code string) (string, error)
	// List returns template paths whose normalized filename starts with
	// the normalized prefix. An empty prefix lists everything.
	List(prefix string) ([]string, error)
}

var normalizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize collapses a filename or form code to a comparison key:
// lowercase alphanumerics only. "SC-100.pdf" and "sc100.PDF" collide on
// purpose; Judicial Council download names are not consistent about dashes.
func Normalize(name string) string {
	name = strings.TrimSuffix(strings.ToLower(name), ".pdf")
	return normalizeRe.ReplaceAllString(name, "")
}

// Dir is a Store over a local directory of PDFs.
type Dir struct {
	path string
}

// NewDir creates a directory-backed template store.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Resolve finds the template whose normalized filename equals the
// normalized input.
func (d *Dir) Resolve(filename string) (string, error) {
	// Exact hit avoids a directory scan.
	exact := filepath.Join(d.path, filename)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	want := Normalize(filename)
	match, err := d.find(func(key string) bool { return key == want })
	if err != nil {
		return "", err
	}
	if match == "" {
		return "", fmt.Errorf("template %q not found in %s", filename, d.path)
	}
	return match, nil
}

// ResolveByCode resolves the template for a form code such as "sc-100".
func (d *Dir) ResolveByCode(code string) (string, error) {
	return d.Resolve(code + ".pdf")
}

// List returns sorted template paths matching the normalized prefix.
func (d *Dir) List(prefix string) ([]string, error) {
	want := Normalize(prefix)
	var paths []string
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if strings.HasPrefix(Normalize(entry.Name()), want) {
			paths = append(paths, filepath.Join(d.path, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// find scans the directory for the first PDF whose normalized name
// satisfies the predicate.
func (d *Dir) find(match func(key string) bool) (string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return "", fmt.Errorf("read templates dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if match(Normalize(entry.Name())) {
			return filepath.Join(d.path, entry.Name()), nil
		}
	}
	return "", nil
}
