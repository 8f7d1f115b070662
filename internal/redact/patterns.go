// Package redact strips secrets from event text before it leaves the
// machine. It is the implementation of the non-exhaustive redact list in
// spec.md §7: file content, raw environment, and high-entropy credentials
// never reach a team instance even when they appear inside a Prompt or
// AgentResponse's free-text fields.
package redact

import "regexp"

// Secret pattern definitions, carried over from the PII-scanning patterns
// the teacher used for conversation privacy warnings, narrowed to the
// high-sensitivity subset worth redacting automatically rather than just
// flagging.
var (
	apiKeyPattern     = regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|secret[_-]?key|access[_-]?token|auth[_-]?token)(['"]?\s*[:=]\s*['"]?)([A-Za-z0-9\-_.]{20,})(['"]?)`)
	awsKeyPattern     = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	privateKeyPattern = regexp.MustCompile(`-----BEGIN (?:RSA|DSA|EC|PGP|OPENSSH) PRIVATE KEY-----[\s\S]*?-----END (?:RSA|DSA|EC|PGP|OPENSSH) PRIVATE KEY-----`)
	tokenPattern      = regexp.MustCompile(`(?i)(?:bearer|token)(['"]?\s*[:=]\s*['"]?)([A-Za-z0-9\-_.]{40,})(['"]?)`)
	passwordPattern   = regexp.MustCompile(`(?i)(?:password|passwd|pwd)(['"]?\s*[:=]\s*['"]?)([^\s'"]+)(['"]?)`)
	databaseURLPattern = regexp.MustCompile(`(?i)(?:postgres|mysql|mongodb|redis)://[^\s]*?(?:@|$)`)
)

// Kind identifies the category of secret a pattern matched, used only for
// the summary counts surfaced in daemon logs.
type Kind string

const (
	KindAPIKey     Kind = "api_key"
	KindAWSKey     Kind = "aws_key"
	KindPrivateKey Kind = "private_key"
	KindToken      Kind = "token"
	KindPassword   Kind = "password"
	KindDatabaseURL Kind = "database_url"
)

type patternSpec struct {
	kind    Kind
	pattern *regexp.Regexp
	// group is the capture group index holding the secret value to mask;
	// 0 means the whole match is replaced.
	group int
}

var patterns = []patternSpec{
	{KindPrivateKey, privateKeyPattern, 0},
	{KindAWSKey, awsKeyPattern, 0},
	{KindAPIKey, apiKeyPattern, 2},
	{KindToken, tokenPattern, 2},
	{KindPassword, passwordPattern, 2},
	{KindDatabaseURL, databaseURLPattern, 0},
}

const mask = "***REDACTED***"
