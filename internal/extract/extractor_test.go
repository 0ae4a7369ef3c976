package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tarEntry describes one entry of a test archive.
type tarEntry struct {
	name     string
	content  string
	typeflag byte
	linkname string
	mode     int64
}

func fileEntry(name, content string) tarEntry {
	return tarEntry{name: name, content: content, typeflag: tar.TypeReg, mode: 0644}
}

// createTestTarGz builds a tar.gz archive from entries.
func createTestTarGz(t *testing.T, entries []tarEntry) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "test.tar.gz")

	archiveFile, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer func() { _ = archiveFile.Close() }()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer func() { _ = gzipWriter.Close() }()

	tarWriter := tar.NewWriter(gzipWriter)
	defer func() { _ = tarWriter.Close() }()

	for _, entry := range entries {
		header := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Linkname: entry.linkname,
			Mode:     entry.mode,
			Size:     int64(len(entry.content)),
		}
		if header.Mode == 0 {
			header.Mode = 0755
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", entry.name, err)
		}
		if entry.content != "" {
			if _, err := tarWriter.Write([]byte(entry.content)); err != nil {
				t.Fatalf("failed to write content for %s: %v", entry.name, err)
			}
		}
	}

	return archivePath
}

// createTestZip builds a zip archive from name/content pairs.
func createTestZip(t *testing.T, files map[string]string) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "test.zip")

	archiveFile, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer func() { _ = archiveFile.Close() }()

	zipWriter := zip.NewWriter(archiveFile)
	defer func() { _ = zipWriter.Close() }()

	for name, content := range files {
		w, err := zipWriter.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", name, err)
		}
	}

	return archivePath
}

func TestExtractTarGz(t *testing.T) {
	archivePath := createTestTarGz(t, []tarEntry{
		{name: "pkg/", typeflag: tar.TypeDir},
		fileEntry("pkg/module.py", "print('hello')"),
		fileEntry("pkg/data/config.json", "{}"),
		{name: "pkg/link", typeflag: tar.TypeSymlink, linkname: "module.py"},
	})

	destDir := filepath.Join(t.TempDir(), "dest")
	result, err := NewExtractor().Extract(archivePath, destDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "pkg", "module.py"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(content) != "print('hello')" {
		t.Errorf("content mismatch: %q", string(content))
	}

	linkTarget, err := os.Readlink(filepath.Join(destDir, "pkg", "link"))
	if err != nil {
		t.Fatalf("failed to read symlink: %v", err)
	}
	if linkTarget != "module.py" {
		t.Errorf("symlink target = %q", linkTarget)
	}

	// Every reported path stays inside the destination
	for _, p := range result.Paths {
		if !strings.HasPrefix(p, result.Destination+string(os.PathSeparator)) {
			t.Errorf("extracted path %s escapes destination", p)
		}
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{name: "parent_traversal", entry: "../../etc/passwd"},
		{name: "absolute_path", entry: "/etc/passwd"},
		{name: "nested_traversal", entry: "pkg/../../escape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := createTestTarGz(t, []tarEntry{
				fileEntry("safe.txt", "ok"),
				fileEntry(tt.entry, "malicious"),
			})

			parent := t.TempDir()
			destDir := filepath.Join(parent, "dest")

			_, err := NewExtractor().Extract(archivePath, destDir)

			var unsafeErr *UnsafePathError
			if !errors.As(err, &unsafeErr) {
				t.Fatalf("expected UnsafePathError, got %T: %v", err, err)
			}

			// Rollback: the destination the extractor created is gone
			if _, err := os.Stat(destDir); !os.IsNotExist(err) {
				t.Errorf("destination not cleaned up after unsafe entry")
			}

			// Nothing escaped into the parent directory
			entries, err := os.ReadDir(parent)
			if err != nil {
				t.Fatalf("read parent dir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("unexpected entries outside destination: %v", entries)
			}
		})
	}
}

func TestExtractRollbackRemovesNestedDirectories(t *testing.T) {
	// The first entry creates two directory levels through a parent
	// mkdir; rollback must remove both, not just the deepest.
	archivePath := createTestTarGz(t, []tarEntry{
		fileEntry("pkg/deep/file.txt", "data"),
		fileEntry("../evil.txt", "malicious"),
	})

	tests := []struct {
		name string
		dest []string
	}{
		{name: "flat_destination", dest: []string{"dest"}},
		{name: "nested_destination", dest: []string{"tools", "toolkit", "dest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			destDir := filepath.Join(append([]string{parent}, tt.dest...)...)

			_, err := NewExtractor().Extract(archivePath, destDir)

			var unsafeErr *UnsafePathError
			if !errors.As(err, &unsafeErr) {
				t.Fatalf("expected UnsafePathError, got %T: %v", err, err)
			}

			if _, err := os.Stat(destDir); !os.IsNotExist(err) {
				t.Errorf("destination still exists after rollback")
			}
			entries, err := os.ReadDir(parent)
			if err != nil {
				t.Fatalf("read parent dir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("unexpected entries left behind: %v", entries)
			}
		})
	}
}

func TestExtractRejectsEscapingSymlink(t *testing.T) {
	tests := []struct {
		name     string
		linkname string
	}{
		{name: "absolute_target", linkname: "/etc/passwd"},
		{name: "relative_escape", linkname: "../../outside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := createTestTarGz(t, []tarEntry{
				{name: "pkg/evil-link", typeflag: tar.TypeSymlink, linkname: tt.linkname},
			})

			destDir := filepath.Join(t.TempDir(), "dest")
			_, err := NewExtractor().Extract(archivePath, destDir)

			var unsafeErr *UnsafePathError
			if !errors.As(err, &unsafeErr) {
				t.Fatalf("expected UnsafePathError, got %T: %v", err, err)
			}
		})
	}
}

func TestExtractRollbackPreservesPreexistingFiles(t *testing.T) {
	destDir := t.TempDir()
	keep := filepath.Join(destDir, "keep.txt")
	if err := os.WriteFile(keep, []byte("precious"), 0644); err != nil {
		t.Fatalf("write pre-existing file: %v", err)
	}

	archivePath := createTestTarGz(t, []tarEntry{
		fileEntry("new.txt", "data"),
		fileEntry("../escape", "malicious"),
	})

	if _, err := NewExtractor().Extract(archivePath, destDir); err == nil {
		t.Fatal("expected error")
	}

	// The pre-existing file survives, the partial extraction does not
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("pre-existing file was removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "new.txt")); !os.IsNotExist(err) {
		t.Errorf("partially extracted file was not rolled back")
	}
}

func TestExtractOverwritePolicy(t *testing.T) {
	archivePath := createTestTarGz(t, []tarEntry{
		fileEntry("existing.txt", "from archive"),
	})

	t.Run("refused_by_default", func(t *testing.T) {
		destDir := t.TempDir()
		existing := filepath.Join(destDir, "existing.txt")
		if err := os.WriteFile(existing, []byte("original"), 0644); err != nil {
			t.Fatalf("write existing file: %v", err)
		}

		_, err := NewExtractor().Extract(archivePath, destDir)

		var refused *OverwriteRefusedError
		if !errors.As(err, &refused) {
			t.Fatalf("expected OverwriteRefusedError, got %T: %v", err, err)
		}

		content, err := os.ReadFile(existing)
		if err != nil {
			t.Fatalf("read existing file: %v", err)
		}
		if string(content) != "original" {
			t.Errorf("existing file was modified: %q", string(content))
		}
	})

	t.Run("allowed_with_flag", func(t *testing.T) {
		destDir := t.TempDir()
		existing := filepath.Join(destDir, "existing.txt")
		if err := os.WriteFile(existing, []byte("original"), 0644); err != nil {
			t.Fatalf("write existing file: %v", err)
		}

		extractor := &Extractor{Overwrite: true}
		if _, err := extractor.Extract(archivePath, destDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(existing)
		if err != nil {
			t.Fatalf("read existing file: %v", err)
		}
		if string(content) != "from archive" {
			t.Errorf("file not overwritten: %q", string(content))
		}
	})
}

func TestExtractZip(t *testing.T) {
	archivePath := createTestZip(t, map[string]string{
		"pkg/module.py": "print('hi')",
		"pkg/README":    "docs",
	})

	destDir := filepath.Join(t.TempDir(), "dest")
	result, err := NewExtractor().Extract(archivePath, destDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "pkg", "module.py"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(content) != "print('hi')" {
		t.Errorf("content mismatch: %q", string(content))
	}
	if len(result.Paths) == 0 {
		t.Error("no extracted paths reported")
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	archivePath := createTestZip(t, map[string]string{
		"../escape.txt": "malicious",
	})

	destDir := filepath.Join(t.TempDir(), "dest")
	_, err := NewExtractor().Extract(archivePath, destDir)

	var unsafeErr *UnsafePathError
	if !errors.As(err, &unsafeErr) {
		t.Fatalf("expected UnsafePathError, got %T: %v", err, err)
	}
}

func TestExtractUnrecognizedFormat(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "not-an-archive")
	if err := os.WriteFile(archivePath, []byte("plain text"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := NewExtractor().Extract(archivePath, t.TempDir())
	if err == nil {
		t.Fatal("expected error for unrecognized format")
	}
}
