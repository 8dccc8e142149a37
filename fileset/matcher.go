package fileset

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	builtinDirs  = map[string]struct{}{".git": {}, "node_modules": {}}
	builtinFiles = map[string]struct{}{".DS_Store": {}}
)

// Rule is one parsed exclusion pattern.
type Rule struct {
	// Glob is the doublestar pattern matched against root-relative paths.
	Glob string
	// DirOnly restricts the rule to directories.
	DirOnly bool
}

// Matches reports whether the rule excludes rel.
func (r Rule) Matches(rel string, isDir bool) bool {
	if r.DirOnly && !isDir {
		return false
	}
	ok, _ := doublestar.Match(r.Glob, rel)
	return ok
}

// ParseRule converts one ignore-file line into a Rule.
// ok is false for blank lines, comments and negations.
func ParseRule(line string) (rule Rule, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return Rule{}, false, nil
	}

	if strings.HasSuffix(line, "/") {
		rule.DirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if anchored, found := strings.CutPrefix(line, "/"); found {
		rule.Glob = anchored
	} else {
		rule.Glob = "**/" + line
	}
	if rule.Glob == "" || rule.Glob == "**/" {
		return Rule{}, false, nil
	}
	rule.Glob = path.Clean(rule.Glob)

	if !doublestar.ValidatePattern(rule.Glob) {
		return Rule{}, false, fmt.Errorf("invalid exclusion pattern %q", line)
	}
	return rule, true, nil
}

// ParseRules reads newline-delimited patterns.
func ParseRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rule, ok, err := ParseRule(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if ok {
			rules = append(rules, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Matcher decides whether a root-relative path is excluded.
type Matcher struct {
	rules []Rule
}

// NewMatcher returns a Matcher applying the built-in exclusions plus rules.
func NewMatcher(rules ...Rule) *Matcher {
	return &Matcher{rules: rules}
}

// Excluded reports whether rel (slash separated) is excluded. For a
// directory, true means nothing below it is included either.
func (m *Matcher) Excluded(rel string, isDir bool) bool {
	name := path.Base(rel)
	if isDir {
		if _, ok := builtinDirs[name]; ok {
			return true
		}
	} else if _, ok := builtinFiles[name]; ok {
		return true
	}

	for _, r := range m.rules {
		if r.Matches(rel, isDir) {
			return true
		}
	}
	return false
}
