package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/caskwell/vouch/internal/attest"
	"github.com/caskwell/vouch/internal/verify"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version":
			fmt.Printf("vouch %s\n", Version)
			return
		case "install":
			if err := runInstall(os.Args[2:]); err != nil {
				fail(err)
			}
			return
		case "verify":
			if err := runVerify(os.Args[2:]); err != nil {
				fail(err)
			}
			return
		}
	}

	fmt.Println("vouch - verified release retrieval and installation")
	fmt.Println()
	fmt.Println("Every release goes through the same gauntlet: locate, download,")
	fmt.Println("checksum, attestation, then extract and install. A failure at any")
	fmt.Println("stage stops the run before it touches your environment.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vouch install [options]    Download, verify, and install a release")
	fmt.Println("  vouch verify [options]     Run the verification stages only")
	fmt.Println("  vouch --version            Show version information")
	fmt.Println()
	fmt.Println("Run 'vouch install --help' or 'vouch verify --help' for options.")
}

// fail prints the error and exits. Verification failures get an explicit
// reassurance that nothing was bypassed.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var mismatch *verify.ChecksumMismatchError
	var missing *attest.AttestationMissingError
	if errors.As(err, &mismatch) || errors.As(err, &missing) {
		fmt.Fprintln(os.Stderr, "No bypass occurred: the release was not extracted or installed.")
	}

	os.Exit(1)
}
