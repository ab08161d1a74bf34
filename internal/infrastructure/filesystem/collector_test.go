package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codetide/repopack/internal/domain/errors"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCollector_Collect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "internal/util.go", "package internal")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, ".git/config", "[core]")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, ".hidden", "secret")

	collector := NewCollector(DefaultCollectorConfig(), nil)
	files, err := collector.Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	wantPaths := []string{"README.md", "internal/util.go", "main.go"}
	if len(files) != len(wantPaths) {
		t.Fatalf("collected %d files, want %d: %+v", len(files), len(wantPaths), files)
	}
	for i, want := range wantPaths {
		if files[i].Path != want {
			t.Errorf("files[%d].Path = %q, want %q (stable sorted order)", i, files[i].Path, want)
		}
	}
	if files[2].Content != "package main" {
		t.Errorf("main.go content = %q", files[2].Content)
	}
}

func TestCollector_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "main_test.go", "package main")
	writeFile(t, root, "docs/guide.md", "# guide")

	config := DefaultCollectorConfig()
	config.IgnorePatterns = []string{"*_test.go", "docs/*"}

	collector := NewCollector(config, nil)
	files, err := collector.Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(files) != 1 || files[0].Path != "main.go" {
		t.Errorf("collected %+v, want only main.go", files)
	}
}

func TestCollector_SkipsBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tool.bin", "ELF\x00\x01\x02")
	writeFile(t, root, "main.go", "package main")

	collector := NewCollector(DefaultCollectorConfig(), nil)
	files, err := collector.Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".bin") {
			t.Errorf("binary file %q was collected", f.Path)
		}
	}
}

func TestCollector_SizeCap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", strings.Repeat("a", 2048))
	writeFile(t, root, "small.txt", "ok")

	config := DefaultCollectorConfig()
	config.MaxFileSize = 1024

	collector := NewCollector(config, nil)
	files, err := collector.Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(files) != 1 || files[0].Path != "small.txt" {
		t.Errorf("collected %+v, want only small.txt", files)
	}
}

func TestCollector_EmptyRoot(t *testing.T) {
	root := t.TempDir()

	collector := NewCollector(DefaultCollectorConfig(), nil)
	_, err := collector.Collect(context.Background(), root)
	if !errors.Is(err, errors.ErrNoFilesCollected) {
		t.Errorf("Collect() error = %v, want ErrNoFilesCollected", err)
	}
}

func TestCollector_MissingRoot(t *testing.T) {
	collector := NewCollector(DefaultCollectorConfig(), nil)
	if _, err := collector.Collect(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root")
	}
}
