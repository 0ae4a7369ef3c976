package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// VerifyManifestSignature checks a detached PGP signature over the checksum
// manifest bytes against a keyring file. Both armored and binary signatures
// are accepted. A signed manifest extends integrity verification with
// publisher authenticity; it is opt-in at the pipeline boundary.
func VerifyManifestSignature(manifest, signature []byte, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(manifest), bytes.NewReader(signature), nil)
	if err != nil {
		// Try non-armored signature
		_, err = openpgp.CheckDetachedSignature(keyring, bytes.NewReader(manifest), bytes.NewReader(signature), nil)
	}
	if err != nil {
		return fmt.Errorf("verify manifest signature: %w", err)
	}

	return nil
}

// loadKeyring reads an armored or binary PGP keyring from disk.
func loadKeyring(path string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		if _, serr := keyringFile.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", serr)
		}
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}
