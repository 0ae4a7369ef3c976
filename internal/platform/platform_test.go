package platform

import (
	"context"
	"runtime"
	"testing"
)

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "amd64", want: "amd64"},
		{input: "x86_64", want: "amd64"},
		{input: "arm64", want: "arm64"},
		{input: "aarch64", want: "arm64"},
		{input: "386", wantErr: true},
		{input: "riscv64", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := normalizeArch(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalizeArch(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeArch(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("normalizeArch(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	info, err := NewDetector().Detect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if info.ArchRaw != runtime.GOARCH {
		t.Errorf("ArchRaw = %q, want %q", info.ArchRaw, runtime.GOARCH)
	}
	if info.Arch != "amd64" && info.Arch != "arm64" {
		t.Errorf("Arch = %q, want normalized value", info.Arch)
	}

	if info.OS != "linux" && info.Distro != "" {
		t.Errorf("distro set on non-Linux host: %q", info.Distro)
	}
}

func TestDetectCancelledContext(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("distro detection only runs on Linux")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context either aborts distro detection or the call
	// completes before noticing; both leave OS/arch intact.
	info, err := NewDetector().Detect(ctx)
	if err == nil && info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
}

func TestExpand(t *testing.T) {
	info := &Info{OS: "linux", Arch: "amd64", ArchRaw: "amd64"}

	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{name: "os_and_arch", pattern: "tool-{os}-{arch}.tar.gz", want: "tool-linux-amd64.tar.gz"},
		{name: "no_placeholders", pattern: "tool.tar.gz", want: "tool.tar.gz"},
		{name: "arch_raw", pattern: "tool-{arch_raw}.zip", want: "tool-amd64.zip"},
		{name: "unknown_placeholder_kept", pattern: "tool-{libc}.tar.gz", want: "tool-{libc}.tar.gz"},
		{name: "repeated", pattern: "{os}/{os}", want: "linux/linux"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.pattern, info); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}
