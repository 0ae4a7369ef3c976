package extract

import "fmt"

// UnsafePathError is returned when an archive entry would escape the
// destination directory: a parent-traversal segment, an absolute or
// drive-rooted name, or a symlink resolving outside the destination. Any
// such entry aborts the whole extraction and rolls back what was written.
type UnsafePathError struct {
	Entry  string
	Reason string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe archive entry %q: %s", e.Entry, e.Reason)
}

// OverwriteRefusedError is returned when an entry would overwrite a file
// that existed before this extraction and the overwrite flag is not set.
type OverwriteRefusedError struct {
	Path string
}

func (e *OverwriteRefusedError) Error() string {
	return fmt.Sprintf("refusing to overwrite existing file %s (use overwrite to allow)", e.Path)
}
