package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/vecsync/core"
)

// DefaultIgnoreFile is read from the root when Options.IgnoreFile is empty.
const DefaultIgnoreFile = ".gitignore"

// Options configures Resolve.
type Options struct {
	// IgnoreFile is the exclusion file, relative to root unless absolute.
	// Empty means DefaultIgnoreFile.
	IgnoreFile string
	// NoIgnoreFile disables reading any exclusion file.
	NoIgnoreFile bool
	// Excludes are extra patterns in ignore-file syntax.
	Excludes []string
	Logger   *slog.Logger
}

// Resolve walks root and returns every non-empty regular file that is not
// excluded, in lexical walk order.
func Resolve(root string, opts Options) ([]core.LocalFile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "fileset")

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	matcher, err := buildMatcher(absRoot, opts, logger)
	if err != nil {
		return nil, err
	}

	var files []core.LocalFile
	var excluded, empty int
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matcher.Excluded(rel, true) {
				logger.Debug("skipping directory", "path", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.Excluded(rel, false) {
			excluded++
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() == 0 {
			empty++
			return nil
		}
		files = append(files, core.NewLocalFile(rel, p, fi.Size()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("resolved local files", "root", absRoot, "files", len(files), "excluded", excluded, "empty", empty)
	return files, nil
}

func buildMatcher(absRoot string, opts Options, logger *slog.Logger) (*Matcher, error) {
	var rules []Rule

	if !opts.NoIgnoreFile {
		ignorePath := opts.IgnoreFile
		if ignorePath == "" {
			ignorePath = DefaultIgnoreFile
		}
		if !filepath.IsAbs(ignorePath) {
			ignorePath = filepath.Join(absRoot, ignorePath)
		}
		fileRules, err := readRules(ignorePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("no exclusion file", "path", ignorePath)
		case err != nil:
			return nil, fmt.Errorf("failed to read exclusion file %s: %w", ignorePath, err)
		default:
			rules = append(rules, fileRules...)
		}
	}

	extra, err := ParseRules(strings.NewReader(strings.Join(opts.Excludes, "\n")))
	if err != nil {
		return nil, fmt.Errorf("invalid exclude: %w", err)
	}
	rules = append(rules, extra...)

	return NewMatcher(rules...), nil
}

func readRules(p string) ([]Rule, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRules(f)
}
