package pipeline

import (
	"time"

	"github.com/caskwell/vouch/internal/attest"
	"github.com/caskwell/vouch/internal/fetch"
)

// Options is the complete inbound surface of a pipeline run.
type Options struct {
	Repository string // "owner/name", required
	Tag        string // empty means latest release

	// Asset name patterns. Placeholders like {os} and {arch} are
	// expanded against the detected host before matching.
	ArchivePattern     string
	ManifestPattern    string
	AttestationPattern string

	Destination string // extraction directory, required for Install

	// Installer settings
	Interpreter   string
	Upgrade       bool
	InstallerArgs []string

	// Verification policy
	AllowUnsigned    bool
	RequireOriginal  bool
	IdentityPatterns []string
	AttestationKeys  attest.Keys
	ManifestKeyring  string // path to a PGP keyring; empty skips manifest signature checks

	// Extraction and cleanup
	Overwrite        bool
	CleanupExtracted bool
	RemoveArchive    bool

	// Transport
	Timeout    time.Duration // overall deadline for the run; zero means none
	MaxRetries int           // per-download attempts; zero uses the default
	Token      string        // release API token, optional
	APIBase    string        // release API base URL; empty uses the public API

	// WorkDir holds downloaded files. Empty means a temporary directory.
	WorkDir string

	Logger Logger
	Audit  *AuditWriter

	// insecureHTTP permits plain-HTTP release servers. For testing only.
	insecureHTTP bool
}

// fetchPolicy derives the retry policy for this run.
func (o *Options) fetchPolicy() fetch.Policy {
	policy := fetch.DefaultPolicy()
	if o.MaxRetries > 0 {
		policy.MaxRetries = o.MaxRetries
	}
	return policy
}
