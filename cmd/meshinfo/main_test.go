package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/internal/importer"
)

const quadOBJ = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.obj"), quadOBJ)
	writeFile(t, filepath.Join(dir, "sub", "a.obj"), quadOBJ)
	writeFile(t, filepath.Join(dir, "readme.txt"), "not a model")
	single := filepath.Join(dir, "readme.txt")

	tests := []struct {
		name   string
		args   []string
		want   int
		walked bool
	}{
		{"directory", []string{dir}, 2, true},
		{"explicit file kept", []string{single}, 1, false},
		{"mixed", []string{single, dir}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, walked, err := collect(tt.args, importer.Default)
			if err != nil {
				t.Fatalf("collect: %v", err)
			}
			if len(files) != tt.want {
				t.Errorf("expected %d files, got %v", tt.want, files)
			}
			if walked != tt.walked {
				t.Errorf("expected walked %v, got %v", tt.walked, walked)
			}
		})
	}
}

func TestCollectMissing(t *testing.T) {
	if _, _, err := collect([]string{"/nonexistent/dir"}, importer.Default); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	writeFile(t, path, quadOBJ)

	var sb strings.Builder
	if err := report(&sb, path, importer.DefaultPostProcess, texture.NewCache(), true); err != nil {
		t.Fatalf("report: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"1 mesh(es)", "4 vertices", "6 indices", "quad"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestReportUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "hello")

	var sb strings.Builder
	if err := report(&sb, path, importer.DefaultPostProcess, texture.NewCache(), false); err == nil {
		t.Error("expected error for unsupported file")
	}
}
