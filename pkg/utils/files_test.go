package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetPathInfo(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prg.chr")
	if err := os.WriteFile(file, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path   string
		exists bool
		isDir  bool
	}{
		{dir, true, true},
		{file, true, false},
		{filepath.Join(dir, "missing.chr"), false, false},
		{filepath.Join(dir, "sub", "..", "prg.chr"), true, false},
	}
	for _, tt := range tests {
		info, err := GetPathInfo(tt.path)
		if err != nil {
			t.Fatalf("GetPathInfo(%q): %v", tt.path, err)
		}
		if info.Exists != tt.exists || info.IsDir != tt.isDir {
			t.Errorf("GetPathInfo(%q) = exists %v dir %v; want %v %v", tt.path, info.Exists, info.IsDir, tt.exists, tt.isDir)
		}
		if !filepath.IsAbs(info.Full) || info.Parent != filepath.Dir(info.Full) {
			t.Errorf("GetPathInfo(%q) = %+v; want absolute path and its parent", tt.path, info)
		}
	}
}
