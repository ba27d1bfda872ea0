package token

import (
	"strings"
	"time"
)

// Kind classifies a stored token value.
type Kind int

const (
	// Absent means nothing is stored (or the stored value has expired).
	Absent Kind = iota
	// Retrieving marks a resolution in flight.
	Retrieving
	// OptOut records that the remote service reported an opt-out.
	OptOut
	// NotFound records that the remote service returned no identifier.
	NotFound
	// Error records that the previous resolution failed.
	Error
	// Security holds an opaque security token to replay on the next request.
	Security
	// Invalid is a reserved-prefix value this package does not know.
	Invalid
)

// Reserved values as they appear in the backing store.
const (
	reservedPrefix  = "$"
	RetrievingValue = "$RETRIEVING"
	OptOutValue     = "$OPT_OUT"
	NotFoundValue   = "$NOT_FOUND"
	ErrorValue      = "$ERROR"
)

// TTL policy per outcome. Retrieving and Error use the fetch timeout.
const (
	Hour = time.Hour
	Day  = 24 * Hour
	Year = 365 * Day

	OptOutTTL   = Year
	SecurityTTL = Year
	NotFoundTTL = Hour
)

// Token is a closed tagged value: a sentinel kind or an opaque security token.
type Token struct {
	Kind  Kind
	Value string
}

var (
	None            = Token{Kind: Absent}
	RetrievingToken = Token{Kind: Retrieving, Value: RetrievingValue}
	OptOutToken     = Token{Kind: OptOut, Value: OptOutValue}
	NotFoundToken   = Token{Kind: NotFound, Value: NotFoundValue}
	ErrorToken      = Token{Kind: Error, Value: ErrorValue}
)

// NewSecurity wraps an opaque value issued by the remote service.
// An empty value yields None.
func NewSecurity(value string) Token {
	if value == "" {
		return None
	}
	if strings.HasPrefix(value, reservedPrefix) {
		return Parse(value)
	}
	return Token{Kind: Security, Value: value}
}

// Parse maps a raw stored value to a Token.
func Parse(raw string) Token {
	switch raw {
	case "":
		return None
	case RetrievingValue:
		return RetrievingToken
	case OptOutValue:
		return OptOutToken
	case NotFoundValue:
		return NotFoundToken
	case ErrorValue:
		return ErrorToken
	}
	if strings.HasPrefix(raw, reservedPrefix) {
		return Token{Kind: Invalid, Value: raw}
	}
	return Token{Kind: Security, Value: raw}
}

// IsAbsent reports whether no token is stored.
func (t Token) IsAbsent() bool { return t.Kind == Absent }

// IsSentinel reports whether the token encodes a state rather than a credential.
func (t Token) IsSentinel() bool {
	switch t.Kind {
	case Retrieving, OptOut, NotFound, Error, Invalid:
		return true
	}
	return false
}

// String returns the stored form.
func (t Token) String() string { return t.Value }

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Retrieving:
		return "retrieving"
	case OptOut:
		return "opt-out"
	case NotFound:
		return "not-found"
	case Error:
		return "error"
	case Security:
		return "security"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}
