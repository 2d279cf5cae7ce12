package utils

import (
	"testing"

	"github.com/spf13/afero"
)

func TestAtomicWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := AtomicWriteFile(fs, "/deep/nested/dir/file.txt", []byte("hello"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := afero.ReadFile(fs, "/deep/nested/dir/file.txt")
	if err != nil {
		t.Fatalf("failed to read back file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}
}

func TestAtomicWriteFileOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := AtomicWriteFile(fs, "/dir/file.txt", []byte("first"), 0644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(fs, "/dir/file.txt", []byte("second"), 0644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	data, _ := afero.ReadFile(fs, "/dir/file.txt")
	if string(data) != "second" {
		t.Errorf("got %q after overwrite, want %q", data, "second")
	}
}

func TestAtomicWriteFileLeavesNoTemp(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := AtomicWriteFile(fs, "/dir/file.txt", []byte("data"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	entries, err := afero.ReadDir(fs, "/dir")
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestEnsureDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := EnsureDir(fs, "/a/b/c"); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	ok, err := afero.DirExists(fs, "/a/b/c")
	if err != nil || !ok {
		t.Error("directory was not created")
	}

	// Creating an existing directory is fine
	if err := EnsureDir(fs, "/a/b/c"); err != nil {
		t.Errorf("EnsureDir on existing dir failed: %v", err)
	}
}
