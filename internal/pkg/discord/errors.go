package discord

import "errors"

var (
	// ErrUserNotFound means no guild member matched the claimed username.
	ErrUserNotFound = errors.New("no matching member found in the community")

	// ErrAmbiguousUser means more than one member matched; the claim cannot
	// be resolved to a unique member.
	ErrAmbiguousUser = errors.New("multiple members match that name")

	// ErrMemberSearch wraps failures while listing guild members, typically
	// the bot missing from the server or a network error.
	ErrMemberSearch = errors.New("member search failed")

	// ErrRoleAssign wraps failures of the role-grant call itself.
	ErrRoleAssign = errors.New("role assignment failed")
)
