// Package platform detects the host operating system, architecture, and
// Linux distribution, and makes that information available to asset name
// patterns and Lua install profiles.
//
// Distribution details come from gopsutil. Detection failures there fall
// back to OS/arch only; most release assets are named by OS and
// architecture alone.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Info describes the host a release is being installed on.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // normalized: "amd64", "arm64"
	ArchRaw string // original GOARCH value
	Distro  string // distro ID (Linux only, e.g. "ubuntu")
	Family  string // distro family (Linux only, e.g. "debian")
	Version string // distro version (Linux only, e.g. "22.04")
}

// IsLinux returns true if the host runs Linux.
func (i *Info) IsLinux() bool { return i.OS == "linux" }

// IsMacOS returns true if the host runs macOS.
func (i *Info) IsMacOS() bool { return i.OS == "darwin" }

// IsWindows returns true if the host runs Windows.
func (i *Info) IsWindows() bool { return i.OS == "windows" }

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RealDetector implements Detector against the running host.
type RealDetector struct{}

// NewDetector creates a detector for the running host.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns information about the running host. On Linux it also
// queries the distribution; if that query fails the distro fields stay
// empty and detection still succeeds.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	info := &Info{
		OS:      runtime.GOOS,
		Arch:    arch,
		ArchRaw: runtime.GOARCH,
	}

	if runtime.GOOS == "linux" {
		distro, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}
		info.Distro = normalize(distro)
		info.Family = normalize(family)
		info.Version = normalize(version)
	}

	return info, nil
}

// normalizeArch folds architecture aliases onto the two supported names.
func normalizeArch(arch string) (string, error) {
	switch arch {
	case "amd64", "x86_64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
