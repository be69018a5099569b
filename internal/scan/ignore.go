package scan

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/hashmirror/hashmirror/internal/utils"
)

// IgnoreFileName is read from the scan root when present.
const IgnoreFileName = ".hashmirrorignore"

var defaultIgnoreLines = []string{
	IgnoreFileName,
	// OS noise
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	// general excludes
	".git/",
	"*.tmp",
	"*.part",
	"*.crdownload",
}

// IgnoreList filters scanned paths with gitignore semantics. The defaults
// cover OS metadata and partial downloads; a .hashmirrorignore file at the
// scan root extends them.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	il := &IgnoreList{baseDir: baseDir}
	il.load()
	return il
}

func (il *IgnoreList) load() {
	lines := append([]string(nil), defaultIgnoreLines...)

	ignorePath := filepath.Join(il.baseDir, IgnoreFileName)
	if utils.FileExists(ignorePath) {
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				if line := scanner.Text(); line != "" {
					lines = append(lines, line)
				}
			}
		}
	}

	il.ignore = gitignore.CompileIgnoreLines(lines...)
}

// Matches reports whether the absolute path is ignored.
func (il *IgnoreList) Matches(absPath string) bool {
	rel, err := filepath.Rel(il.baseDir, absPath)
	if err != nil {
		return false
	}
	return il.ignore.MatchesPath(rel)
}
