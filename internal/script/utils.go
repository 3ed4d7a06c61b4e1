package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultDir is where generated scripts are stored
const DefaultDir = "scripts"

// GenerateScriptPath creates a timestamped script filename inside dir
func GenerateScriptPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("edits_%s.yaml", timestamp))
}

// Latest is the script path that selects the newest script in DefaultDir
const Latest = "latest"

// ResolvePath expands Latest to the newest script in dir; other paths are
// returned unchanged.
func ResolvePath(path, dir string) (string, error) {
	if path != Latest {
		return path, nil
	}
	return FindLatestScript(dir)
}

// FindLatestScript finds the most recent script file in dir
func FindLatestScript(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read scripts directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var scripts []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		scripts = append(scripts, candidate{filepath.Join(dir, name), info.ModTime()})
	}

	if len(scripts) == 0 {
		return "", fmt.Errorf("no script files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].modTime.After(scripts[j].modTime)
	})

	return scripts[0].path, nil
}
