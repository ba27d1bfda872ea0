package resolver

import (
	"fmt"
	"regexp"

	"github.com/viant/cid/token"
)

type action int

const (
	actionFetch action = iota
	actionOptOut
	actionNotFound
	actionFail
)

type decision struct {
	action action
	// markRetrieving is set when the store holds no credential worth keeping
	// while the fetch is in flight.
	markRetrieving bool
	replay         string
	err            error
}

// decide maps the settled token to what a resolution does next.
func decide(current token.Token, referrer string, proxyOrigin *regexp.Regexp) decision {
	switch current.Kind {
	case token.OptOut:
		return decision{action: actionOptOut}
	case token.NotFound:
		if !isProxyOrigin(referrer, proxyOrigin) {
			return decision{action: actionNotFound}
		}
	case token.Error:
		return decision{action: actionFail, err: ErrPreviousFailure}
	case token.Invalid:
		return decision{action: actionFail, err: fmt.Errorf("%w: %s", ErrInvalidState, current.Value)}
	case token.Security:
		return decision{action: actionFetch, replay: current.Value}
	case token.Absent, token.Retrieving:
	}
	return decision{action: actionFetch, markRetrieving: true}
}

func isProxyOrigin(referrer string, proxyOrigin *regexp.Regexp) bool {
	return proxyOrigin != nil && referrer != "" && proxyOrigin.MatchString(referrer)
}
