package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Provider API keys ride on Authorization headers and storage DSNs
// embed passwords, so log records are filtered before they reach any
// sink. Redaction matches on field names (and two prefixes) plus value
// shapes that look like credentials.
var (
	// Three dot-separated base64url segments, the JWT shape.
	jwtPattern = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)

	bearerPattern    = regexp.MustCompile(`(?i)^bearer\s+.+$`)
	basicAuthPattern = regexp.MustCompile(`(?i)^basic\s+.+$`)
)

// redactedFieldNames are matched case-insensitively by masq against
// attr keys and struct field names.
var redactedFieldNames = []string{
	"password", "secret", "token",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token",
	"refreshToken", "refresh_token",
	"credential", "credentials",
	"authorization", "auth", "bearer",
	"cookie", "session",
	"privateKey", "private_key",
	"secretKey", "secret_key",
}

// DefaultRedactOptions returns the masq options every sink starts
// from. Extend per deployment by appending:
//
//	opts := append(logging.DefaultRedactOptions(),
//	    masq.WithFieldName("MySecretField"),
//	    masq.WithType[MySecretType](),
//	)
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(redactedFieldNames)+5)
	for _, name := range redactedFieldNames {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(basicAuthPattern),
	)
}

// NewReplaceAttr builds the ReplaceAttr hook for slog.HandlerOptions,
// combining DefaultRedactOptions with any extras:
//
//	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//	    ReplaceAttr: logging.NewReplaceAttr(),
//	})
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
