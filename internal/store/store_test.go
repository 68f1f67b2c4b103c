package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/parser"
)

// writeFile creates a file under dir, making parent directories as needed.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

// fixtureTree writes a small nginx config tree with includes and globs.
func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "nginx.conf", `
user www-data;
http {
    include conf.d/*.conf;
    include sites-enabled/example.com;
    server {
        listen 8000;
        server_name somename;
    }
}
`)
	writeFile(t, root, "conf.d/gzip.conf", "gzip on;\n")
	writeFile(t, root, "conf.d/charset.conf", "charset utf-8;\n")
	writeFile(t, root, "sites-enabled/example.com", `
server {
    listen 80;
    server_name example.com www.example.com;
}
`)
	return root
}

// recordingCheckpointer records snapshot requests without copying files.
type recordingCheckpointer struct {
	paths []string
	err   error
}

func (r *recordingCheckpointer) AddToCheckpoint(paths []string) error {
	if r.err != nil {
		return r.err
	}
	r.paths = append(r.paths, paths...)
	return nil
}

func TestLoad(t *testing.T) {
	root := fixtureTree(t)
	s, err := New(root, "nginx.conf")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Run("AllFilesLoaded", func(t *testing.T) {
		files := s.Files()
		if len(files) != 4 {
			t.Fatalf("expected 4 files, got %d: %v", len(files), files)
		}
	})

	t.Run("GetByAbsPath", func(t *testing.T) {
		f, ok := s.Get(s.AbsPath("sites-enabled/example.com"))
		if !ok {
			t.Fatal("included file not loaded")
		}
		if len(f.Blocks) == 0 || !f.Blocks[0].IsBlock("server") {
			t.Error("included file content not parsed")
		}
	})

	t.Run("GlobResolved", func(t *testing.T) {
		if _, ok := s.Get(s.AbsPath("conf.d/gzip.conf")); !ok {
			t.Error("glob include not resolved")
		}
		if _, ok := s.Get(s.AbsPath("conf.d/charset.conf")); !ok {
			t.Error("glob include not resolved")
		}
	})

	t.Run("NothingDirty", func(t *testing.T) {
		if dirty := s.Dirty(); len(dirty) != 0 {
			t.Errorf("fresh load should have no dirty files, got %v", dirty)
		}
	})
}

func TestLoadMissingInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "nginx.conf", "http {\n    include missing/*.conf;\n}\n")

	s, _ := New(root, "nginx.conf")
	if err := s.Load(); err != nil {
		t.Fatalf("includes matching no files should be skipped, got %v", err)
	}
	if len(s.Files()) != 1 {
		t.Errorf("expected only the root file, got %v", s.Files())
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "nginx.conf", "include a.conf;\n")
	writeFile(t, root, "a.conf", "include b.conf;\n")
	writeFile(t, root, "b.conf", "include a.conf;\n")

	s, _ := New(root, "nginx.conf")
	err := s.Load()
	if err == nil {
		t.Fatal("expected include cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error should mention the cycle: %v", err)
	}
}

func TestLoadDiamondInclude(t *testing.T) {
	// Two files including the same shared file is not a cycle.
	root := t.TempDir()
	writeFile(t, root, "nginx.conf", "include a.conf;\ninclude b.conf;\n")
	writeFile(t, root, "a.conf", "include shared.conf;\n")
	writeFile(t, root, "b.conf", "include shared.conf;\n")
	writeFile(t, root, "shared.conf", "gzip on;\n")

	s, _ := New(root, "nginx.conf")
	if err := s.Load(); err != nil {
		t.Fatalf("diamond include should load: %v", err)
	}
	if len(s.Files()) != 4 {
		t.Errorf("expected 4 files, got %v", s.Files())
	}
}

func TestLoadParseError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "nginx.conf", "http {\n    include broken.conf;\n}\n")
	broken := writeFile(t, root, "broken.conf", "server {\n    listen 80\n}\n")

	s, _ := New(root, "nginx.conf")
	err := s.Load()
	if err == nil {
		t.Fatal("expected parse error from included file")
	}
	if !errors.Is(err, errors.ErrParse) {
		t.Errorf("expected PARSE error, got %v", err)
	}
	if !strings.Contains(err.Error(), broken) {
		t.Errorf("error should name the broken file: %v", err)
	}
}

func TestLoadDiscardsMutations(t *testing.T) {
	root := fixtureTree(t)
	s, _ := New(root, "nginx.conf")
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	f, _ := s.Get(s.RootFile())
	f.Blocks = append(f.Blocks, &parser.Block{Kind: parser.KindDirective, Tokens: []string{"gzip", "on"}})
	f.MarkMutated()

	if err := s.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if dirty := s.Dirty(); len(dirty) != 0 {
		t.Errorf("reload should discard uncommitted mutations, got dirty %v", dirty)
	}
}

func TestSave(t *testing.T) {
	root := fixtureTree(t)
	s, _ := New(root, "nginx.conf")
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sitePath := s.AbsPath("sites-enabled/example.com")
	f, _ := s.Get(sitePath)
	server := f.Blocks[0]
	server.Children = append(server.Children, &parser.Block{
		Kind:   parser.KindDirective,
		Tokens: []string{"listen", "443", "ssl"},
	})
	f.MarkMutated()

	t.Run("OnlyDirtyFilesWritten", func(t *testing.T) {
		cp := &recordingCheckpointer{}
		if err := s.Save(cp); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if len(cp.paths) != 1 || cp.paths[0] != sitePath {
			t.Errorf("expected snapshot of %s only, got %v", sitePath, cp.paths)
		}

		content, err := os.ReadFile(sitePath)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if !strings.Contains(string(content), "listen 443 ssl;") {
			t.Errorf("saved file missing new directive:\n%s", content)
		}
	})

	t.Run("SecondSaveWritesNothing", func(t *testing.T) {
		cp := &recordingCheckpointer{}
		if err := s.Save(cp); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if len(cp.paths) != 0 {
			t.Errorf("clean store should snapshot nothing, got %v", cp.paths)
		}
	})
}

func TestSaveSnapshotFailureAborts(t *testing.T) {
	root := fixtureTree(t)
	s, _ := New(root, "nginx.conf")
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sitePath := s.AbsPath("sites-enabled/example.com")
	before, _ := os.ReadFile(sitePath)

	f, _ := s.Get(sitePath)
	f.Blocks[0].Children = append(f.Blocks[0].Children, &parser.Block{
		Kind:   parser.KindDirective,
		Tokens: []string{"gzip", "on"},
	})
	f.MarkMutated()

	cp := &recordingCheckpointer{err: errors.Wrap(errors.ErrCodeRevert, "disk full", nil)}
	if err := s.Save(cp); err == nil {
		t.Fatal("expected save to fail when snapshotting fails")
	}

	after, _ := os.ReadFile(sitePath)
	if string(before) != string(after) {
		t.Error("file must be untouched when the snapshot fails")
	}
}
