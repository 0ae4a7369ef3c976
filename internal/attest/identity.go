package attest

import (
	"fmt"
	"regexp"
	"strings"
)

// matchIdentity reports whether a signer identity matches a glob pattern.
// Unlike path globs, "*" here matches any character sequence including "/",
// because workflow identities are full URLs
// (e.g. "https://example/workflow@*" must match
// "https://example/workflow@refs/heads/main").
func matchIdentity(pattern, identity string) (bool, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(identity), nil
}

// checkIdentity matches identity against the allowed patterns. An empty
// pattern list pins nothing and always passes.
func checkIdentity(identity string, patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}

	for _, pattern := range patterns {
		ok, err := matchIdentity(pattern, identity)
		if err != nil {
			return fmt.Errorf("invalid identity pattern %q: %w", pattern, err)
		}
		if ok {
			return nil
		}
	}

	return &IdentityMismatchError{Identity: identity, Patterns: patterns}
}

// globToRegexp compiles a glob pattern into an anchored regular expression.
// "*" matches any sequence, "?" matches one character, everything else is
// literal.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")

	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
