// Package pipeline chains release location, download, integrity and
// attestation verification, extraction, and installation into one run.
//
// Stages run strictly in order and every verification failure aborts the
// run before any later stage touches the host. Each run emits one audit
// record regardless of outcome.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caskwell/vouch/internal/attest"
	"github.com/caskwell/vouch/internal/extract"
	"github.com/caskwell/vouch/internal/fetch"
	"github.com/caskwell/vouch/internal/install"
	"github.com/caskwell/vouch/internal/platform"
	"github.com/caskwell/vouch/internal/release"
	"github.com/caskwell/vouch/internal/verify"
)

// Report summarizes a completed run.
type Report struct {
	Tag         string // resolved release tag
	Archive     string // archive asset name
	ArchivePath string // local path of the downloaded archive
	Digest      string // lowercase hex SHA-256 of the archive
	SizeBytes   int64

	Attestation *attest.Result // nil when the run proceeded unsigned
	Extraction  *extract.Result
	Install     *install.Outcome

	// Unsigned is true when AllowUnsigned was used to skip attestation.
	Unsigned bool
}

// Pipeline executes runs against one set of options.
type Pipeline struct {
	opts     Options
	log      Logger
	detector platform.Detector
}

// New creates a pipeline. Options are validated lazily at run time so a
// pipeline can be constructed before a profile is fully resolved.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = defaultLogger()
	}
	return &Pipeline{
		opts:     opts,
		log:      log,
		detector: platform.NewDetector(),
	}
}

// Install runs the full pipeline: locate, download, verify integrity and
// attestation, extract, install, clean up.
func (p *Pipeline) Install(ctx context.Context) (*Report, error) {
	return p.run(ctx, true)
}

// Verify runs the verification stages only. Nothing is extracted or
// installed; the downloaded archive stays in the work directory.
func (p *Pipeline) Verify(ctx context.Context) (*Report, error) {
	return p.run(ctx, false)
}

func (p *Pipeline) run(ctx context.Context, doInstall bool) (*Report, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	record := newAuditRecord(p.opts.Repository, p.opts.Tag)
	report, err := p.stages(ctx, doInstall, record)

	if err != nil {
		record.Outcome = "failure"
		record.Error = err.Error()
	} else {
		record.Outcome = "success"
		record.Tag = report.Tag
	}
	if p.opts.Audit != nil {
		if auditErr := p.opts.Audit.Write(record); auditErr != nil {
			p.log.Error("audit write failed", "error", auditErr)
		}
	}

	return report, err
}

func (p *Pipeline) stages(ctx context.Context, doInstall bool, record *AuditRecord) (*Report, error) {
	if p.opts.Repository == "" {
		return nil, fmt.Errorf("no repository configured")
	}

	fetcher := p.newFetcher()
	report := &Report{}

	// Locate
	located, err := p.locate(ctx, fetcher)
	if err != nil {
		return nil, fmt.Errorf("locate release: %w", err)
	}
	report.Tag = located.Release.Tag
	report.Archive = located.Archive.Name
	p.log.Info("release located",
		"repository", p.opts.Repository,
		"tag", located.Release.Tag,
		"archive", located.Archive.Name)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Download manifest, then archive
	manifestBytes, err := fetcher.Fetch(ctx, located.Manifest.DownloadURL)
	if err != nil {
		return report, fmt.Errorf("download manifest: %w", err)
	}
	if p.opts.ManifestKeyring != "" {
		if err := p.checkManifestSignature(ctx, fetcher, located, manifestBytes); err != nil {
			return report, fmt.Errorf("manifest signature: %w", err)
		}
	}
	manifest, err := verify.ParseManifest(manifestBytes)
	if err != nil {
		return report, fmt.Errorf("parse manifest: %w", err)
	}

	workDir, err := p.workDir()
	if err != nil {
		return report, err
	}
	archivePath := filepath.Join(workDir, located.Archive.Name)
	if cachedDigest, ok := cachedArchive(archivePath, manifest, located.Archive.Name); ok {
		p.log.Info("reusing cached archive", "path", archivePath, "digest", cachedDigest)
	} else if err := fetcher.FetchToFile(ctx, located.Archive.DownloadURL, archivePath); err != nil {
		return report, fmt.Errorf("download archive: %w", err)
	}
	report.ArchivePath = archivePath

	// Integrity
	digest, size, err := verify.DigestFile(archivePath)
	if err != nil {
		return report, fmt.Errorf("digest archive: %w", err)
	}
	report.Digest = digest
	report.SizeBytes = size
	record.Digest = digest
	if err := manifest.Verify(located.Archive.Name, digest); err != nil {
		return report, fmt.Errorf("verify checksum: %w", err)
	}
	p.log.Info("integrity verified", "digest", digest, "size", size)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Attestation
	if located.Attestation == nil {
		if !p.opts.AllowUnsigned {
			return report, &attest.AttestationMissingError{
				Ref: release.Ref{Repository: p.opts.Repository, Tag: report.Tag}.String(),
			}
		}
		report.Unsigned = true
		record.AllowUnsigned = true
		p.log.Warn("proceeding without attestation",
			"repository", p.opts.Repository, "tag", report.Tag)
	} else {
		bundleBytes, err := fetcher.Fetch(ctx, located.Attestation.DownloadURL)
		if err != nil {
			return report, fmt.Errorf("download attestation: %w", err)
		}
		result, err := attest.Verify(ctx, bundleBytes, digest, attest.Options{
			IdentityPatterns: p.opts.IdentityPatterns,
			RequireOriginal:  p.opts.RequireOriginal,
			Keys:             p.opts.AttestationKeys,
		})
		if err != nil {
			return report, fmt.Errorf("verify attestation: %w", err)
		}
		report.Attestation = result
		record.SignerIdentity = result.SignerIdentity
		record.Backfilled = result.Backfilled
		for _, w := range result.Warnings {
			p.log.Warn(w)
		}
		p.log.Info("attestation verified",
			"format", result.Format.String(),
			"identity", result.SignerIdentity,
			"backfilled", result.Backfilled)
	}

	if !doInstall {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Extract
	if p.opts.Destination == "" {
		return report, fmt.Errorf("no destination configured")
	}
	lock, err := acquireDestLock(p.opts.Destination)
	if err != nil {
		return report, err
	}
	defer lock.release()

	extractor := &extract.Extractor{Overwrite: p.opts.Overwrite}
	extraction, err := extractor.Extract(archivePath, p.opts.Destination)
	if err != nil {
		return report, fmt.Errorf("extract archive: %w", err)
	}
	report.Extraction = extraction
	p.log.Info("archive extracted",
		"destination", extraction.Destination,
		"entries", len(extraction.Paths))

	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Install
	installer := install.New(install.Options{
		Interpreter: p.opts.Interpreter,
		Upgrade:     p.opts.Upgrade,
		ExtraArgs:   p.opts.InstallerArgs,
	})
	outcome, err := installer.Install(ctx, []string{extraction.Destination})
	if err != nil {
		return report, fmt.Errorf("install package: %w", err)
	}
	report.Install = outcome
	p.log.Info("package installed", "paths", outcome.InstalledPaths)

	// Cleanup is best effort: a failure here never undoes the install
	var targets []string
	if p.opts.CleanupExtracted {
		targets = append(targets, extraction.Destination)
	}
	if p.opts.RemoveArchive {
		targets = append(targets, archivePath)
	}
	for _, cleanupErr := range install.Cleanup(outcome, targets...) {
		p.log.Warn("cleanup failed", "error", cleanupErr)
	}

	return report, nil
}

func (p *Pipeline) newFetcher() *fetch.Fetcher {
	var fetchOpts []fetch.Option
	if p.opts.Token != "" {
		fetchOpts = append(fetchOpts, fetch.WithToken(p.opts.Token))
	}
	if p.opts.insecureHTTP {
		fetchOpts = append(fetchOpts, fetch.WithInsecureHTTP())
	}
	return fetch.New(p.opts.fetchPolicy(), fetchOpts...)
}

func (p *Pipeline) locate(ctx context.Context, fetcher *fetch.Fetcher) (*release.Located, error) {
	patterns := release.Patterns{
		Archive:     p.opts.ArchivePattern,
		Manifest:    p.opts.ManifestPattern,
		Attestation: p.opts.AttestationPattern,
	}

	if hasPlaceholders(patterns) {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, err
		}
		patterns.Archive = platform.Expand(patterns.Archive, info)
		patterns.Manifest = platform.Expand(patterns.Manifest, info)
		patterns.Attestation = platform.Expand(patterns.Attestation, info)
	}

	locator := release.NewLocator(fetcher, p.opts.APIBase)
	ref := release.Ref{Repository: p.opts.Repository, Tag: p.opts.Tag}
	return locator.Locate(ctx, ref, patterns)
}

// checkManifestSignature fetches the manifest's detached signature and
// checks it against the configured keyring. A pinned keyring with no
// published signature is a failure, not a downgrade.
func (p *Pipeline) checkManifestSignature(ctx context.Context, fetcher *fetch.Fetcher, located *release.Located, manifestBytes []byte) error {
	var sigAsset *release.Asset
	for i, asset := range located.Release.Assets {
		if asset.Name == located.Manifest.Name+".asc" || asset.Name == located.Manifest.Name+".sig" {
			sigAsset = &located.Release.Assets[i]
			break
		}
	}
	if sigAsset == nil {
		return fmt.Errorf("no signature asset published for %s", located.Manifest.Name)
	}

	sig, err := fetcher.Fetch(ctx, sigAsset.DownloadURL)
	if err != nil {
		return fmt.Errorf("download signature: %w", err)
	}
	return verify.VerifyManifestSignature(manifestBytes, sig, p.opts.ManifestKeyring)
}

func (p *Pipeline) workDir() (string, error) {
	if p.opts.WorkDir != "" {
		if err := os.MkdirAll(p.opts.WorkDir, 0755); err != nil {
			return "", fmt.Errorf("create work directory: %w", err)
		}
		return p.opts.WorkDir, nil
	}
	dir, err := os.MkdirTemp("", "vouch-*")
	if err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}

// cachedArchive reports whether a previous run already downloaded this
// archive into the work directory with a digest the manifest accepts. A
// stale or corrupt leftover is simply re-downloaded.
func cachedArchive(archivePath string, manifest verify.Manifest, assetName string) (string, bool) {
	if _, err := os.Stat(archivePath); err != nil {
		return "", false
	}
	digest, _, err := verify.DigestFile(archivePath)
	if err != nil {
		return "", false
	}
	if err := manifest.Verify(assetName, digest); err != nil {
		return "", false
	}
	return digest, true
}

func hasPlaceholders(patterns release.Patterns) bool {
	return strings.Contains(patterns.Archive, "{") ||
		strings.Contains(patterns.Manifest, "{") ||
		strings.Contains(patterns.Attestation, "{")
}
