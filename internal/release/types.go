package release

// Ref identifies a release to install. An empty Tag means "latest".
type Ref struct {
	Repository string // "owner/name"
	Tag        string
}

// String returns a human-readable reference for error messages.
func (r Ref) String() string {
	if r.Tag == "" {
		return r.Repository + "@latest"
	}
	return r.Repository + "@" + r.Tag
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	SizeBytes   uint64 `json:"size"`
}

// Release is the resolved release descriptor returned by the release API.
type Release struct {
	Tag    string  `json:"tag_name"`
	Assets []Asset `json:"assets"`
}

// Located holds the assets selected for the three pipeline roles. The
// attestation asset is nil when no attestation pattern matched and
// enforcement was not requested.
type Located struct {
	Release     *Release
	Archive     Asset
	Manifest    Asset
	Attestation *Asset
}
