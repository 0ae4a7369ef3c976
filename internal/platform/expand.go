package platform

import "strings"

// Expand substitutes host placeholders in an asset name pattern.
//
// Supported placeholders: {os}, {arch}, {arch_raw}. A pattern like
// "tool-{os}-{arch}.tar.gz" becomes "tool-linux-amd64.tar.gz" on a
// typical Linux host. Unknown placeholders are left untouched so the
// resulting pattern still fails asset selection loudly rather than
// silently matching the wrong file.
func Expand(pattern string, info *Info) string {
	r := strings.NewReplacer(
		"{os}", info.OS,
		"{arch}", info.Arch,
		"{arch_raw}", info.ArchRaw,
	)
	return r.Replace(pattern)
}
