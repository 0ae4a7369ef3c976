package platform

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestInjectTable(t *testing.T) {
	info := &Info{
		OS:      "linux",
		Arch:    "arm64",
		ArchRaw: "arm64",
		Distro:  "ubuntu",
		Family:  "debian",
		Version: "22.04",
	}

	L := lua.NewState()
	defer L.Close()
	InjectTable(L, info)

	script := `
		assert(platform.os == "linux")
		assert(platform.arch == "arm64")
		assert(platform.is_linux == true)
		assert(platform.is_macos == false)
		assert(platform.distro.id == "ubuntu")
		assert(platform.distro.family == "debian")
		assert(platform.distro.version == "22.04")
	`
	if err := L.DoString(script); err != nil {
		t.Fatalf("script failed: %v", err)
	}
}

func TestInjectTableNoDistro(t *testing.T) {
	info := &Info{OS: "darwin", Arch: "arm64", ArchRaw: "arm64"}

	L := lua.NewState()
	defer L.Close()
	InjectTable(L, info)

	if err := L.DoString(`assert(platform.distro == nil)`); err != nil {
		t.Fatalf("script failed: %v", err)
	}
}

func TestInjectTableReadOnly(t *testing.T) {
	info := &Info{OS: "linux", Arch: "amd64", ArchRaw: "amd64"}

	L := lua.NewState()
	defer L.Close()
	InjectTable(L, info)

	err := L.DoString(`platform.os = "windows"`)
	if err == nil {
		t.Fatal("expected write to platform table to fail")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("unexpected error: %v", err)
	}
}
