// Package source discovers Claude Code JSONL session files on disk.
package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DiscoveredFile is a JSONL file found during directory scanning.
type DiscoveredFile struct {
	Path       string
	Project    string // decoded display name (e.g., "gitlore")
	ProjectDir string // raw directory name
	ModTime    time.Time
	Size       int64
}

// ScanDir walks the Claude projects directory and discovers all JSONL
// session files. The result is sorted by modification time, then path —
// the fixed processing order the deduplicator depends on. A missing
// projects directory yields an empty slice, not an error; callers
// decide whether that is fatal.
func ScanDir(claudeDir string) ([]DiscoveredFile, error) {
	projectsDir := filepath.Join(claudeDir, "projects")

	info, err := os.Stat(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(projectsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished mid-walk
		}

		rel, _ := filepath.Rel(projectsDir, path)
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			return nil
		}

		projectDir := parts[0]
		files = append(files, DiscoveredFile{
			Path:       path,
			Project:    decodeProjectName(projectDir),
			ProjectDir: projectDir,
			ModTime:    fi.ModTime(),
			Size:       fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// decodeProjectName extracts a human-readable project name from the
// encoded directory name. Claude Code encodes absolute paths by
// replacing "/" with "-", so:
//
//	"-Users-alice-projects-gitlore" -> "gitlore"
//	"-Users-alice-projects-my-cool-project" -> "my-cool-project"
//
// We find the last known path component ("projects", "repos", "src",
// ...) and take everything after it. Falls back to the last non-empty
// segment.
func decodeProjectName(dirName string) string {
	parts := strings.Split(dirName, "-")

	knownParents := map[string]bool{
		"projects": true, "repos": true, "src": true,
		"code": true, "workspace": true, "dev": true,
	}

	for i := len(parts) - 2; i >= 0; i-- {
		if knownParents[strings.ToLower(parts[i])] {
			name := strings.Join(parts[i+1:], "-")
			if name != "" {
				return name
			}
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}

	return dirName
}

// CountProjects returns the number of unique projects in a set of
// discovered files.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.Project] = struct{}{}
	}
	return len(seen)
}
