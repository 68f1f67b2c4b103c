// Package store loads an nginx configuration tree and writes it back.
//
// The store owns the mapping from absolute file path to parsed tree for
// the lifetime of one configurator session. Load resolves include
// directives (glob patterns included) relative to the server root and
// rebuilds the whole mapping; it is never partially refreshed. Save
// re-serializes every changed file, and always snapshots through the
// supplied checkpointer first so no write bypasses the reverter.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/logger"
	"github.com/ksyq12/certnginx/internal/parser"
)

// Checkpointer snapshots files before they are overwritten. Implemented
// by the reverter; redeclared here so the store does not depend on it.
type Checkpointer interface {
	AddToCheckpoint(paths []string) error
}

// Store holds the parsed configuration tree for one server root.
type Store struct {
	root     string // server root directory, absolute
	rootFile string // main config file, absolute
	files    map[string]*parser.ParsedFile
}

// New creates a store for the given server root and main config file.
// rootFile may be relative to the server root.
func New(serverRoot, rootFile string) (*Store, error) {
	absRoot, err := filepath.Abs(serverRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve server root %s: %w", serverRoot, err)
	}
	return &Store{
		root:     absRoot,
		rootFile: absJoin(absRoot, rootFile),
		files:    make(map[string]*parser.ParsedFile),
	}, nil
}

// Root returns the absolute server root directory.
func (s *Store) Root() string {
	return s.root
}

// RootFile returns the absolute path of the main config file.
func (s *Store) RootFile() string {
	return s.rootFile
}

// AbsPath resolves a path relative to the server root.
func (s *Store) AbsPath(path string) string {
	return absJoin(s.root, path)
}

// Load parses the main config file and every file it transitively
// includes. Any previously loaded state, including uncommitted
// in-memory mutations, is discarded wholesale.
func (s *Store) Load() error {
	files := make(map[string]*parser.ParsedFile)
	onStack := make(map[string]bool)

	if err := s.parseRecursively(s.rootFile, files, onStack); err != nil {
		return err
	}
	if _, ok := files[s.rootFile]; !ok {
		return errors.Wrap(errors.ErrCodeParse,
			fmt.Sprintf("root config file %s not found", s.rootFile), nil)
	}

	s.files = files
	logger.Debug("loaded %d config files under %s", len(files), s.root)
	return nil
}

// parseRecursively parses pattern's matches and chases their include
// directives depth-first. A file that is being parsed higher up the
// stack constitutes an include cycle and fails the whole load.
func (s *Store) parseRecursively(pattern string, files map[string]*parser.ParsedFile, onStack map[string]bool) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse,
			fmt.Sprintf("bad include pattern %s", pattern), err)
	}
	if len(matches) == 0 {
		logger.Debug("include %s matched no files", pattern)
	}

	for _, path := range matches {
		if onStack[path] {
			return errors.Wrap(errors.ErrCodeParse,
				fmt.Sprintf("include cycle detected at %s", path), nil)
		}
		if _, done := files[path]; done {
			continue
		}

		text, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.ErrCodeParse,
				fmt.Sprintf("cannot read %s", path), err)
		}
		parsed, err := parser.Parse(path, string(text))
		if err != nil {
			return errors.Wrap(errors.ErrCodeParse,
				fmt.Sprintf("cannot parse %s", path), err)
		}
		files[path] = parsed

		onStack[path] = true
		err = s.walkIncludes(parsed.Blocks, func(includeArg string) error {
			return s.parseRecursively(absJoin(s.root, includeArg), files, onStack)
		})
		onStack[path] = false
		if err != nil {
			return err
		}
	}
	return nil
}

// walkIncludes visits every include directive in the tree, at any depth.
func (s *Store) walkIncludes(blocks []*parser.Block, fn func(string) error) error {
	for _, b := range blocks {
		switch b.Kind {
		case parser.KindDirective:
			if b.Name() == "include" && len(b.Args()) > 0 {
				if err := fn(parser.Unquote(b.Args()[0])); err != nil {
					return err
				}
			}
		case parser.KindBlock:
			if err := s.walkIncludes(b.Children, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the parsed file for an absolute path.
func (s *Store) Get(path string) (*parser.ParsedFile, bool) {
	f, ok := s.files[path]
	return f, ok
}

// Files returns every loaded file path, sorted.
func (s *Store) Files() []string {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Dirty returns the paths of files mutated since load, sorted.
func (s *Store) Dirty() []string {
	var paths []string
	for p, f := range s.files {
		if f.Dirty() {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Save re-serializes every dirty file back to its source path. The
// checkpointer snapshots each file before it is overwritten; a snapshot
// failure aborts the save before any file is touched.
func (s *Store) Save(cp Checkpointer) error {
	dirty := s.Dirty()
	if len(dirty) == 0 {
		return nil
	}

	if err := cp.AddToCheckpoint(dirty); err != nil {
		return errors.Wrap(errors.ErrCodeRevert, "cannot snapshot files before save", err)
	}

	for _, path := range dirty {
		f := s.files[path]
		if err := os.WriteFile(path, []byte(parser.Dump(f)), 0644); err != nil {
			return errors.Wrap(errors.ErrCodeInternal,
				fmt.Sprintf("cannot write %s", path), err)
		}
		f.MarkSaved()
		logger.Debug("wrote %s", path)
	}
	return nil
}

func absJoin(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
