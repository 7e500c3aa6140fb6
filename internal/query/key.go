package query

import "strings"

// Query scopes. A mutation invalidates whole scopes.
const (
	ScopeListings     = "listings"
	ScopeListing      = "listing"
	ScopeCurrentUser  = "getUser"
	ScopeUserListings = "getUserListings"
)

const keySeparator = "|"

// Key identifies one cached query: a scope plus its serialized parameters.
type Key struct {
	Scope  string
	Params string
}

func NewKey(scope string, params ...string) Key {
	return Key{Scope: scope, Params: strings.Join(params, keySeparator)}
}

func (k Key) String() string {
	return k.Scope + keySeparator + k.Params
}

func scopePrefix(scope string) string {
	return scope + keySeparator
}
