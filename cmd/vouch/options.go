package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caskwell/vouch/internal/attest"
	"github.com/caskwell/vouch/internal/pipeline"
	"github.com/caskwell/vouch/internal/platform"
	"github.com/caskwell/vouch/internal/profile"
)

// runFlags collects everything the install and verify subcommands accept.
type runFlags struct {
	showHelp bool
	verbose  bool

	profilePath string
	repo        string
	tag         string

	archive     string
	manifest    string
	attestation string
	identities  []string

	dest        string
	interpreter string
	upgrade     bool
	overwrite   bool

	allowUnsigned   bool
	requireOriginal bool
	signerKeyPath   string
	logKeyPath      string
	keyringPath     string

	cleanup       bool
	removeArchive bool
	auditLogPath  string
	timeout       time.Duration
	maxRetries    int
	workDir       string
}

// parseRunFlags parses a subcommand argument list. Flags that take a
// value consume the next argument.
func parseRunFlags(args []string) (*runFlags, error) {
	f := &runFlags{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		value := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		switch arg {
		case "--help", "-h":
			f.showHelp = true
		case "--verbose", "-v":
			f.verbose = true
		case "--profile":
			f.profilePath, err = value()
		case "--repo":
			f.repo, err = value()
		case "--tag":
			f.tag, err = value()
		case "--archive":
			f.archive, err = value()
		case "--manifest":
			f.manifest, err = value()
		case "--attestation":
			f.attestation, err = value()
		case "--identity":
			var id string
			if id, err = value(); err == nil {
				f.identities = append(f.identities, id)
			}
		case "--dest":
			f.dest, err = value()
		case "--interpreter":
			f.interpreter, err = value()
		case "--upgrade":
			f.upgrade = true
		case "--overwrite":
			f.overwrite = true
		case "--allow-unsigned":
			f.allowUnsigned = true
		case "--require-original":
			f.requireOriginal = true
		case "--signer-key":
			f.signerKeyPath, err = value()
		case "--log-key":
			f.logKeyPath, err = value()
		case "--keyring":
			f.keyringPath, err = value()
		case "--cleanup":
			f.cleanup = true
		case "--remove-archive":
			f.removeArchive = true
		case "--audit-log":
			f.auditLogPath, err = value()
		case "--work-dir":
			f.workDir, err = value()
		case "--timeout":
			var raw string
			if raw, err = value(); err == nil {
				f.timeout, err = time.ParseDuration(raw)
			}
		case "--max-retries":
			var raw string
			if raw, err = value(); err == nil {
				if f.maxRetries, err = strconv.Atoi(raw); err == nil && f.maxRetries < 1 {
					err = fmt.Errorf("--max-retries must be at least 1")
				}
			}
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}

// buildOptions resolves flags and an optional profile into pipeline
// options. Flags override profile values.
func buildOptions(ctx context.Context, f *runFlags) (pipeline.Options, func(), error) {
	cleanup := func() {}
	opts := pipeline.Options{}

	if f.profilePath != "" {
		parser := profile.NewParser(platform.NewDetector())
		p, err := parser.ParseFile(ctx, f.profilePath)
		if err != nil {
			return opts, cleanup, fmt.Errorf("load profile: %w", err)
		}
		opts.Repository = p.Repository
		opts.Tag = p.Tag
		opts.ArchivePattern = p.Archive
		opts.ManifestPattern = p.Manifest
		opts.AttestationPattern = p.Attestation
		opts.IdentityPatterns = p.Identities
		opts.Destination = p.Destination
		opts.Interpreter = p.Interpreter
		opts.Upgrade = p.Upgrade
		opts.Overwrite = p.Overwrite
		opts.AllowUnsigned = p.AllowUnsigned
		opts.RequireOriginal = p.RequireOriginal
	}

	if f.repo != "" {
		opts.Repository = f.repo
	}
	if f.tag != "" {
		opts.Tag = f.tag
	}
	if f.archive != "" {
		opts.ArchivePattern = f.archive
	}
	if f.manifest != "" {
		opts.ManifestPattern = f.manifest
	}
	if f.attestation != "" {
		opts.AttestationPattern = f.attestation
	}
	if len(f.identities) > 0 {
		opts.IdentityPatterns = f.identities
	}
	if f.dest != "" {
		opts.Destination = f.dest
	}
	if f.interpreter != "" {
		opts.Interpreter = f.interpreter
	}
	if f.upgrade {
		opts.Upgrade = true
	}
	if f.overwrite {
		opts.Overwrite = true
	}
	if f.allowUnsigned {
		opts.AllowUnsigned = true
	}
	if f.requireOriginal {
		opts.RequireOriginal = true
	}

	if opts.Repository == "" {
		return opts, cleanup, fmt.Errorf("no repository given (use --repo or --profile)")
	}
	if opts.ManifestPattern == "" {
		opts.ManifestPattern = "SHA256SUMS"
	}

	keys, err := loadKeys(f)
	if err != nil {
		return opts, cleanup, err
	}
	opts.AttestationKeys = keys
	opts.ManifestKeyring = f.keyringPath

	opts.CleanupExtracted = f.cleanup
	opts.RemoveArchive = f.removeArchive
	opts.Timeout = f.timeout
	opts.MaxRetries = f.maxRetries
	opts.WorkDir = f.workDir
	opts.Token = tokenFromEnv()
	opts.Logger = newStderrLogger(f.verbose)

	if f.auditLogPath != "" {
		auditFile, err := os.OpenFile(f.auditLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return opts, cleanup, fmt.Errorf("open audit log: %w", err)
		}
		opts.Audit = pipeline.NewAuditWriter(auditFile)
		cleanup = func() { _ = auditFile.Close() }
	}

	return opts, cleanup, nil
}

// loadKeys reads hex-encoded ed25519 public keys for native attestation
// bundles. Both keys are optional; sigstore bundles need neither.
func loadKeys(f *runFlags) (attest.Keys, error) {
	keys := attest.Keys{}

	load := func(path string) (ed25519.PublicKey, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", path, err)
		}
		raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decode key %s: %w", path, err)
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("key %s: expected %d bytes, got %d", path, ed25519.PublicKeySize, len(raw))
		}
		return ed25519.PublicKey(raw), nil
	}

	var err error
	if f.signerKeyPath != "" {
		if keys.Signer, err = load(f.signerKeyPath); err != nil {
			return keys, err
		}
	}
	if f.logKeyPath != "" {
		if keys.Log, err = load(f.logKeyPath); err != nil {
			return keys, err
		}
	}
	return keys, nil
}

// tokenFromEnv returns the release API token, if any.
func tokenFromEnv() string {
	if token := os.Getenv("VOUCH_GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GITHUB_TOKEN")
}
