package resolver

import "github.com/viant/cid/token"

// Result is the outcome of a resolution: a client identifier, an opt-out, or
// neither (no identifier assigned).
type Result struct {
	ClientID string `json:"clientId,omitempty"`
	OptOut   bool   `json:"optOut,omitempty"`
}

// Found reports whether a client identifier was assigned.
func (r Result) Found() bool { return r.ClientID != "" }

// String returns the client identifier, the opt-out marker, or "".
func (r Result) String() string {
	if r.OptOut {
		return token.OptOutValue
	}
	return r.ClientID
}
