// Package release resolves a (repository, tag) reference against a
// GitHub-style release API and selects the archive, checksum-manifest, and
// attestation assets by glob pattern.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/caskwell/vouch/internal/fetch"
)

// DefaultAPIBase is the release API endpoint used when none is configured.
const DefaultAPIBase = "https://api.github.com"

// Patterns holds the glob patterns for the three asset roles. Archive and
// Manifest are required; Attestation may be empty.
type Patterns struct {
	Archive     string
	Manifest    string
	Attestation string
}

// Locator resolves release references via the release API. It makes exactly
// one metadata request per Locate call.
type Locator struct {
	fetcher *fetch.Fetcher
	apiBase string
}

// NewLocator creates a locator using the given fetcher for metadata
// requests. An empty apiBase selects DefaultAPIBase.
func NewLocator(fetcher *fetch.Fetcher, apiBase string) *Locator {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Locator{fetcher: fetcher, apiBase: apiBase}
}

// Locate resolves ref and selects one asset per role.
func (l *Locator) Locate(ctx context.Context, ref Ref, patterns Patterns) (*Located, error) {
	if ref.Repository == "" {
		return nil, fmt.Errorf("repository is required")
	}
	if patterns.Archive == "" {
		return nil, fmt.Errorf("archive pattern is required")
	}
	if patterns.Manifest == "" {
		return nil, fmt.Errorf("manifest pattern is required")
	}

	rel, err := l.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	archive, err := selectAsset(ref, rel.Assets, patterns.Archive)
	if err != nil {
		return nil, err
	}

	manifest, err := selectAsset(ref, rel.Assets, patterns.Manifest)
	if err != nil {
		return nil, err
	}

	located := &Located{
		Release:  rel,
		Archive:  *archive,
		Manifest: *manifest,
	}

	if patterns.Attestation != "" {
		attestation, err := selectAsset(ref, rel.Assets, patterns.Attestation)
		if err != nil {
			// Absence is tolerated here; enforcement is decided by the
			// attestation stage. Ambiguity is still rejected.
			var notFound *NotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		} else {
			located.Attestation = attestation
		}
	}

	return located, nil
}

// resolve fetches the release descriptor for ref.
func (l *Locator) resolve(ctx context.Context, ref Ref) (*Release, error) {
	metaURL := l.metadataURL(ref)

	body, err := l.fetcher.Fetch(ctx, metaURL)
	if err != nil {
		var status *fetch.StatusError
		if errors.As(err, &status) && status.StatusCode == 404 {
			return nil, &NotFoundError{Ref: ref.String()}
		}
		return nil, fmt.Errorf("fetch release metadata: %w", err)
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("decode release metadata: %w", err)
	}

	if rel.Tag == "" {
		return nil, &NotFoundError{Ref: ref.String()}
	}

	return &rel, nil
}

// metadataURL builds the release API URL for ref.
func (l *Locator) metadataURL(ref Ref) string {
	if ref.Tag == "" {
		return fmt.Sprintf("%s/repos/%s/releases/latest", l.apiBase, ref.Repository)
	}
	return fmt.Sprintf("%s/repos/%s/releases/tags/%s", l.apiBase, ref.Repository, url.PathEscape(ref.Tag))
}

// selectAsset matches pattern against asset names. Exactly one match is
// required: zero is NotFoundError, more than one is AmbiguousAssetError.
func selectAsset(ref Ref, assets []Asset, pattern string) (*Asset, error) {
	var matches []Asset

	for _, asset := range assets {
		ok, err := path.Match(pattern, asset.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid asset pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, asset)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Ref: ref.String(), Pattern: pattern}
	case 1:
		return &matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return nil, &AmbiguousAssetError{Ref: ref.String(), Pattern: pattern, Matches: names}
	}
}
