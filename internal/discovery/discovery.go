// Package discovery enumerates media files in a single directory and groups
// them by case-insensitive filename stem. Recursion into subdirectories is the
// orchestrator's responsibility so each directory finishes before descent.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"lectern/internal/media"
)

// File is a classified media file found during a directory scan.
type File struct {
	Path       string
	Dir        string
	Name       string
	Stem       string
	FoldedStem string
	Category   media.Category
}

// Group collects the files sharing one case-folded stem within a directory.
// Members are ordered by category priority, then case-insensitive path, so
// repeated scans of an unchanged directory iterate identically.
type Group struct {
	// Key is the case-folded stem used for grouping.
	Key string
	// Stem is the original-case stem of the first member after sorting,
	// used as the artifact name prefix.
	Stem  string
	Files []File
}

var folder = cases.Fold()

// FoldStem returns the case-folded form of a filename stem.
func FoldStem(stem string) string {
	return folder.String(stem)
}

// Stem strips the extension from a file name.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Discover scans a single directory for files with known media extensions.
// Unknown extensions, including previously generated outputs, are skipped so
// artifacts are never reprocessed as inputs. Results are sorted by
// case-insensitive name for a stable baseline order.
func Discover(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		category, ok := media.Classify(name)
		if !ok {
			continue
		}
		stem := Stem(name)
		files = append(files, File{
			Path:       filepath.Join(dir, name),
			Dir:        dir,
			Name:       name,
			Stem:       stem,
			FoldedStem: FoldStem(stem),
			Category:   category,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return folder.String(files[i].Name) < folder.String(files[j].Name)
	})
	return files, nil
}

// GroupByStem partitions files into stem groups. Groups are returned in
// case-folded stem order; within each group, members are sorted by category
// priority then case-insensitive path.
func GroupByStem(files []File) []Group {
	byKey := make(map[string][]File)
	for _, file := range files {
		byKey[file.FoldedStem] = append(byKey[file.FoldedStem], file)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		members := byKey[key]
		sort.Slice(members, func(i, j int) bool {
			pi, pj := members[i].Category.Priority(), members[j].Category.Priority()
			if pi != pj {
				return pi < pj
			}
			return folder.String(members[i].Path) < folder.String(members[j].Path)
		})
		groups = append(groups, Group{
			Key:   key,
			Stem:  members[0].Stem,
			Files: members,
		})
	}
	return groups
}

// Primary returns the highest-priority non-image member, if any.
func (g Group) Primary() (File, bool) {
	for _, file := range g.Files {
		if file.Category.IsSource() {
			return file, true
		}
	}
	return File{}, false
}

// Images returns the group's image members in sorted order.
func (g Group) Images() []File {
	var images []File
	for _, file := range g.Files {
		if file.Category == media.CategoryImage {
			images = append(images, file)
		}
	}
	return images
}

// Subdirs lists the immediate subdirectories of dir in case-insensitive
// lexicographic name order.
func Subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var subdirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		subdirs = append(subdirs, filepath.Join(dir, entry.Name()))
	}
	sort.Slice(subdirs, func(i, j int) bool {
		return folder.String(subdirs[i]) < folder.String(subdirs[j])
	})
	return subdirs, nil
}
