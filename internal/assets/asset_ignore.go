package assets

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cloudflare/workers-sdk-sub005/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// always excluded, wherever they appear in the tree
var builtinIgnoreNames = map[string]struct{}{
	"node_modules": {},
}

// dot-names that are still uploaded (RFC 8615)
var builtinHiddenAllowed = map[string]struct{}{
	".well-known": {},
}

// IsBuiltinExcluded reports whether a file or directory name is skipped by the
// platform rules, regardless of any ignore file
func IsBuiltinExcluded(name string) bool {
	if _, ok := builtinIgnoreNames[name]; ok {
		return true
	}
	if strings.HasPrefix(name, ".") {
		_, ok := builtinHiddenAllowed[name]
		return !ok
	}
	return false
}

// IgnoreMatcher holds the compiled ignore-file rules of an asset tree
type IgnoreMatcher struct {
	path    string
	exists  bool
	rules   int
	matcher *gitignore.GitIgnore
}

// LoadIgnoreMatcher reads the ignore file for root. An empty ignoreFile means
// IgnoreFileName at the root. A missing file gives an empty rule set; an unreadable
// one is logged and treated as empty
func LoadIgnoreMatcher(root, ignoreFile string) *IgnoreMatcher {
	if ignoreFile == "" {
		ignoreFile = filepath.Join(root, IgnoreFileName)
	}

	m := &IgnoreMatcher{path: ignoreFile}
	if !utils.FileExists(ignoreFile) {
		return m
	}
	m.exists = true

	lines := []string{
		// the ignore file is never an asset
		filepath.Base(ignoreFile),
	}

	file, err := os.Open(ignoreFile)
	if err != nil {
		slog.Warn("Failed to open ignore file", "path", ignoreFile, "error", err)
		m.matcher = gitignore.CompileIgnoreLines(lines...)
		return m
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			slog.Debug("Skipping negated ignore rule", "path", ignoreFile, "rule", line)
			continue
		}
		lines = append(lines, line)
		m.rules++
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("Error reading ignore file", "path", ignoreFile, "error", err)
	} else {
		slog.Debug("Loaded ignore file", "path", ignoreFile, "rules", m.rules)
	}

	m.matcher = gitignore.CompileIgnoreLines(lines...)
	return m
}

// HasIgnoreFile reports whether the ignore file exists, even if it is empty
func (m *IgnoreMatcher) HasIgnoreFile() bool {
	return m != nil && m.exists
}

// Rules returns the number of user rules loaded
func (m *IgnoreMatcher) Rules() int {
	if m == nil {
		return 0
	}
	return m.rules
}

// Ignored reports whether relPath (forward slashes, relative to the root) is excluded
func (m *IgnoreMatcher) Ignored(relPath string) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.MatchesPath(relPath)
}

// IgnoredDir reports whether every path under the directory relPath is excluded
func (m *IgnoreMatcher) IgnoredDir(relPath string) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.MatchesPath(relPath) || m.matcher.MatchesPath(relPath+"/")
}

// IncludeFilter admits files matching at least one include glob and no exclude glob.
// No include globs admits all
type IncludeFilter struct {
	patterns []string
	excludes []string
}

// NewIncludeFilter validates the doublestar globs
func NewIncludeFilter(patterns []string) (*IncludeFilter, error) {
	return NewPatternFilter(patterns, nil)
}

// NewPatternFilter builds a filter from include and exclude globs
func NewPatternFilter(include, exclude []string) (*IncludeFilter, error) {
	f := &IncludeFilter{}
	var err error
	if f.patterns, err = validPatterns("include", include); err != nil {
		return nil, err
	}
	if f.excludes, err = validPatterns("exclude", exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func validPatterns(kind string, patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid %s pattern %q", kind, p)
		}
		out = append(out, p)
	}
	return out, nil
}

// Included reports whether relPath passes the filter
func (f *IncludeFilter) Included(relPath string) bool {
	if f == nil {
		return true
	}
	if matchAny(f.excludes, relPath) {
		return false
	}
	return len(f.patterns) == 0 || matchAny(f.patterns, relPath)
}

func matchAny(patterns []string, relPath string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		// a bare pattern like "*.html" matches at any depth
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, baseName(relPath)); ok {
				return true
			}
		}
	}
	return false
}

func baseName(relPath string) string {
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
