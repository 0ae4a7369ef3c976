package main

import (
	"context"
	"fmt"

	"github.com/caskwell/vouch/internal/pipeline"
)

// runVerify handles the `vouch verify` subcommand. It runs the locate,
// checksum, and attestation stages and reports the result without
// extracting or installing anything.
func runVerify(args []string) error {
	flags, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	if flags.showHelp {
		printVerifyHelp()
		return nil
	}

	ctx := context.Background()
	opts, closeAudit, err := buildOptions(ctx, flags)
	if err != nil {
		return err
	}
	defer closeAudit()

	report, err := pipeline.New(opts).Verify(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Verified %s %s\n", opts.Repository, report.Tag)
	fmt.Printf("  archive: %s\n", report.Archive)
	fmt.Printf("  sha256:  %s\n", report.Digest)
	if report.Unsigned {
		fmt.Println("  attestation: none (--allow-unsigned)")
	} else if report.Attestation != nil {
		fmt.Printf("  signer:  %s\n", report.Attestation.SignerIdentity)
		if report.Attestation.Backfilled {
			fmt.Printf("  backfilled: yes")
			if report.Attestation.BackfillNote != "" {
				fmt.Printf(" (%s)", report.Attestation.BackfillNote)
			}
			fmt.Println()
		}
	}

	return nil
}

func printVerifyHelp() {
	fmt.Println("Usage: vouch verify [options]")
	fmt.Println()
	fmt.Println("Run the verification stages only: locate the release, download the")
	fmt.Println("archive and manifest, check the checksum, and validate the")
	fmt.Println("attestation. Nothing is extracted or installed.")
	fmt.Println()
	fmt.Println("Options are the same as 'vouch install' except that --dest,")
	fmt.Println("--interpreter, and the other installation flags are ignored.")
}
