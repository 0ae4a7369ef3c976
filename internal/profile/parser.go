package profile

import (
	"context"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/caskwell/vouch/internal/platform"
)

// Parser runs profile scripts and extracts the declared profile.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector skips platform injection,
// which is only useful for tests that do not branch on the host.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseError carries a friendly message alongside the raw Lua error.
type ParseError struct {
	Message string
	Detail  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile loads and runs a profile script from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Profile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return p.ParseString(ctx, string(code))
}

// ParseString runs a profile script held in memory.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Profile, error) {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		platform.InjectTable(L, info)
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractProfile(L)
}

// extractProfile reads the global "vouch" table out of the Lua state.
func extractProfile(L *lua.LState) (*Profile, error) {
	top := L.GetGlobal("vouch")
	if top.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'vouch' table",
			Detail:  fmt.Sprintf("expected table, got %s", top.Type()),
		}
	}
	table := top.(*lua.LTable)

	profile := &Profile{
		Repository:      getString(table, "repository"),
		Tag:             getString(table, "tag"),
		Destination:     getString(table, "destination"),
		Interpreter:     getString(table, "interpreter"),
		Upgrade:         getBool(table, "upgrade"),
		Overwrite:       getBool(table, "overwrite"),
		AllowUnsigned:   getBool(table, "allow_unsigned"),
		RequireOriginal: getBool(table, "require_original"),
	}

	if assetsVal := table.RawGetString("assets"); assetsVal.Type() == lua.LTTable {
		assets := assetsVal.(*lua.LTable)
		profile.Archive = getString(assets, "archive")
		profile.Manifest = getString(assets, "manifest")
		profile.Attestation = getString(assets, "attestation")
	}

	if idsVal := table.RawGetString("identities"); idsVal.Type() == lua.LTTable {
		idsVal.(*lua.LTable).ForEach(func(key, value lua.LValue) {
			// nil entries come from platform conditionals and are skipped
			if value.Type() != lua.LTString {
				return
			}
			profile.Identities = append(profile.Identities, value.String())
		})
	}

	if err := profile.Validate(); err != nil {
		return nil, &ParseError{
			Message: "profile validation failed",
			Detail:  err.Error(),
		}
	}

	return profile, nil
}

func getString(table *lua.LTable, key string) string {
	if v := table.RawGetString(key); v.Type() == lua.LTString {
		return v.String()
	}
	return ""
}

func getBool(table *lua.LTable, key string) bool {
	if v := table.RawGetString(key); v.Type() == lua.LTBool {
		return bool(v.(lua.LBool))
	}
	return false
}

// FormatError renders a parse error for display. Verbose mode keeps the
// full Lua traceback; the default trims it to the first relevant line.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
