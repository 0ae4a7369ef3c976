// Package extract unpacks release archives into a destination directory,
// rejecting any entry that would write outside it. A rejected entry aborts
// the whole extraction and removes everything already written, so a failed
// extraction leaves no partial state on disk.
package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Extractor handles archive extraction. The zero value refuses to
// overwrite files that existed before the extraction started.
type Extractor struct {
	// Overwrite permits replacing files not created by this extraction
	Overwrite bool
}

// Result lists what was extracted. Every path is an absolute descendant of
// Destination.
type Result struct {
	Destination string
	Paths       []string
}

// NewExtractor creates an extractor with the default overwrite policy.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks the archive at archivePath into destDir. The format is
// detected from the file's magic bytes; tar.gz and zip are supported.
func (e *Extractor) Extract(archivePath, destDir string) (*Result, error) {
	format, err := sniffFormat(archivePath)
	if err != nil {
		return nil, err
	}

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	tracker, err := newTracker(absDest)
	if err != nil {
		return nil, err
	}

	switch format {
	case formatTarGz:
		err = e.extractTarGz(archivePath, absDest, tracker)
	case formatZip:
		err = e.extractZip(archivePath, absDest, tracker)
	}

	if err != nil {
		tracker.rollback()
		return nil, err
	}

	return &Result{Destination: absDest, Paths: tracker.created}, nil
}

type format int

const (
	formatTarGz format = iota
	formatZip
)

// sniffFormat detects the archive format from magic bytes.
func sniffFormat(archivePath string) (format, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	magic := make([]byte, 2)
	if _, err := io.ReadFull(file, magic); err != nil {
		return 0, fmt.Errorf("read archive header: %w", err)
	}

	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return formatTarGz, nil
	case magic[0] == 'P' && magic[1] == 'K':
		return formatZip, nil
	default:
		return 0, fmt.Errorf("unrecognized archive format (expected tar.gz or zip)")
	}
}

// tracker records everything the extraction creates so a failure can be
// rolled back, including any destination directory levels it had to make.
type tracker struct {
	dest       string
	destLevels []string // created dest ancestry, deepest first
	created    []string
}

func newTracker(dest string) (*tracker, error) {
	t := &tracker{dest: dest}

	var missing []string
	for p := dest; p != filepath.Dir(p); p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat dest dir: %w", err)
		}
		missing = append(missing, p)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], 0755); err != nil {
			return nil, fmt.Errorf("create dest dir: %w", err)
		}
	}
	t.destLevels = missing

	return t, nil
}

func (t *tracker) record(p string) {
	t.created = append(t.created, p)
}

// rollback removes created entries in reverse order, then every
// destination directory level this extraction created.
func (t *tracker) rollback() {
	for i := len(t.created) - 1; i >= 0; i-- {
		os.RemoveAll(t.created[i])
	}
	for _, p := range t.destLevels {
		os.Remove(p)
	}
}

// createdByUs reports whether p was written by this extraction.
func (t *tracker) createdByUs(p string) bool {
	for _, c := range t.created {
		if c == p {
			return true
		}
	}
	return false
}

// resolveEntry validates an archive entry name and maps it to a target
// path inside dest.
func resolveEntry(dest, name string) (string, error) {
	if name == "" {
		return "", &UnsafePathError{Entry: name, Reason: "empty entry name"}
	}

	// Archive entry names use forward slashes regardless of platform
	cleaned := path.Clean(name)

	if path.IsAbs(cleaned) || filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", &UnsafePathError{Entry: name, Reason: "absolute or drive-rooted path"}
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &UnsafePathError{Entry: name, Reason: "parent-directory traversal"}
	}

	target := filepath.Join(dest, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", &UnsafePathError{Entry: name, Reason: "escapes destination directory"}
	}

	return target, nil
}

// checkSymlink rejects symlink targets that resolve outside dest.
func checkSymlink(dest, entryName, target, linkname string) error {
	if linkname == "" {
		return &UnsafePathError{Entry: entryName, Reason: "empty symlink target"}
	}
	if path.IsAbs(linkname) || filepath.IsAbs(linkname) {
		return &UnsafePathError{Entry: entryName, Reason: "absolute symlink target"}
	}

	resolved := filepath.Clean(filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname)))
	if !strings.HasPrefix(resolved, filepath.Clean(dest)+string(os.PathSeparator)) {
		return &UnsafePathError{Entry: entryName, Reason: "symlink target escapes destination directory"}
	}

	return nil
}

func (e *Extractor) extractTarGz(archivePath, dest string, t *tracker) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break // End of archive
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := resolveEntry(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := e.makeDir(target, t); err != nil {
				return err
			}

		case tar.TypeReg:
			if err := e.writeFile(target, tarReader, os.FileMode(header.Mode), t); err != nil {
				return fmt.Errorf("write %s: %w", header.Name, err)
			}

		case tar.TypeSymlink:
			if err := checkSymlink(dest, header.Name, target, header.Linkname); err != nil {
				return err
			}
			if err := e.makeSymlink(target, header.Linkname, t); err != nil {
				return fmt.Errorf("symlink %s: %w", header.Name, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}

	return nil
}

func (e *Extractor) extractZip(archivePath, dest string, t *tracker) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		target, err := resolveEntry(dest, entry.Name)
		if err != nil {
			return err
		}

		mode := entry.Mode()

		switch {
		case mode.IsDir() || strings.HasSuffix(entry.Name, "/"):
			if err := e.makeDir(target, t); err != nil {
				return err
			}

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(entry)
			if err != nil {
				return fmt.Errorf("read symlink entry %s: %w", entry.Name, err)
			}
			if err := checkSymlink(dest, entry.Name, target, linkname); err != nil {
				return err
			}
			if err := e.makeSymlink(target, linkname, t); err != nil {
				return fmt.Errorf("symlink %s: %w", entry.Name, err)
			}

		default:
			rc, err := entry.Open()
			if err != nil {
				return fmt.Errorf("open zip entry %s: %w", entry.Name, err)
			}
			werr := e.writeFile(target, rc, mode.Perm(), t)
			rc.Close()
			if werr != nil {
				return fmt.Errorf("write %s: %w", entry.Name, werr)
			}
		}
	}

	return nil
}

// readZipEntry reads a small zip entry fully (used for symlink targets).
func readZipEntry(entry *zip.File) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Extractor) makeDir(target string, t *tracker) error {
	return makeDirAll(target, t)
}

// makeDirAll creates dir and any missing ancestors below the destination,
// recording every level created so rollback removes them all.
func makeDirAll(dir string, t *tracker) error {
	var missing []string
	for p := dir; p != t.dest && p != filepath.Dir(p); p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		missing = append(missing, p)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", missing[i], err)
		}
		t.record(missing[i])
	}
	return nil
}

func (e *Extractor) writeFile(target string, content io.Reader, mode os.FileMode, t *tracker) error {
	if err := e.checkOverwrite(target, t); err != nil {
		return err
	}

	if err := e.makeParents(target, t); err != nil {
		return err
	}

	if mode.Perm() == 0 {
		mode = 0644
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(outFile, content); err != nil {
		outFile.Close()
		return err
	}

	if err := outFile.Close(); err != nil {
		return err
	}

	t.record(target)
	return nil
}

func (e *Extractor) makeSymlink(target, linkname string, t *tracker) error {
	if err := e.checkOverwrite(target, t); err != nil {
		return err
	}
	if err := e.makeParents(target, t); err != nil {
		return err
	}
	if err := os.Symlink(linkname, target); err != nil {
		return err
	}
	t.record(target)
	return nil
}

// checkOverwrite enforces the overwrite policy: a file that existed before
// this extraction is only replaced when Overwrite is set. Files this
// extraction already wrote may always be rewritten.
func (e *Extractor) checkOverwrite(target string, t *tracker) error {
	if e.Overwrite || t.createdByUs(target) {
		return nil
	}
	if _, err := os.Lstat(target); err == nil {
		return &OverwriteRefusedError{Path: target}
	}
	return nil
}

func (e *Extractor) makeParents(target string, t *tracker) error {
	return makeDirAll(filepath.Dir(target), t)
}
