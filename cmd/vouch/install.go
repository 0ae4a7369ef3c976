package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caskwell/vouch/internal/pipeline"
)

// runInstall handles the `vouch install` subcommand.
func runInstall(args []string) error {
	flags, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	if flags.showHelp {
		printInstallHelp()
		return nil
	}

	ctx := context.Background()
	opts, closeAudit, err := buildOptions(ctx, flags)
	if err != nil {
		return err
	}
	defer closeAudit()

	if opts.Destination == "" {
		return fmt.Errorf("no destination given (use --dest or a profile)")
	}

	report, err := pipeline.New(opts).Install(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Installed %s %s\n", opts.Repository, report.Tag)
	fmt.Printf("  archive: %s\n", report.Archive)
	fmt.Printf("  sha256:  %s\n", report.Digest)
	if report.Unsigned {
		fmt.Fprintln(os.Stderr, "Warning: installed without attestation (--allow-unsigned)")
	} else if report.Attestation != nil {
		fmt.Printf("  signer:  %s\n", report.Attestation.SignerIdentity)
		if report.Attestation.Backfilled {
			fmt.Fprintln(os.Stderr, "Warning: attestation was backfilled after original publication")
		}
	}

	return nil
}

func printInstallHelp() {
	fmt.Println("Usage: vouch install [options]")
	fmt.Println()
	fmt.Println("Download a release, verify its checksum and attestation, extract it,")
	fmt.Println("and install it with pip.")
	fmt.Println()
	fmt.Println("Source selection:")
	fmt.Println("  --profile <path>        Lua install profile")
	fmt.Println("  --repo <owner/name>     Repository to install from")
	fmt.Println("  --tag <tag>             Release tag (default: latest)")
	fmt.Println("  --archive <pattern>     Archive asset pattern ({os}/{arch} expand)")
	fmt.Println("  --manifest <pattern>    Checksum manifest pattern (default: SHA256SUMS)")
	fmt.Println("  --attestation <pattern> Attestation bundle pattern")
	fmt.Println()
	fmt.Println("Verification:")
	fmt.Println("  --identity <pattern>    Allowed signer identity (repeatable)")
	fmt.Println("  --signer-key <path>     Hex ed25519 key for native bundles")
	fmt.Println("  --log-key <path>        Hex ed25519 transparency-log key")
	fmt.Println("  --keyring <path>        PGP keyring for manifest signatures")
	fmt.Println("  --require-original      Reject backfilled attestations")
	fmt.Println("  --allow-unsigned        Proceed without an attestation (logged)")
	fmt.Println()
	fmt.Println("Installation:")
	fmt.Println("  --dest <dir>            Extraction directory")
	fmt.Println("  --interpreter <path>    Python interpreter (default: python3)")
	fmt.Println("  --upgrade               Pass --upgrade to pip")
	fmt.Println("  --overwrite             Overwrite existing files when extracting")
	fmt.Println("  --cleanup               Remove extracted files after installing")
	fmt.Println("  --remove-archive        Remove the downloaded archive afterwards")
	fmt.Println()
	fmt.Println("General:")
	fmt.Println("  --work-dir <dir>        Directory for downloads (default: temp)")
	fmt.Println("  --audit-log <path>      Append a JSON audit record per run")
	fmt.Println("  --timeout <duration>    Overall deadline, e.g. 5m")
	fmt.Println("  --max-retries <n>       Attempts per download (default: 3)")
	fmt.Println("  --verbose, -v           Debug logging")
	fmt.Println()
	fmt.Println("The release API token is read from VOUCH_GITHUB_TOKEN or GITHUB_TOKEN.")
}
