package host

import "errors"

// ErrBadOrigin is returned when an account calls a privileged operation
// without holding the authority role.
var ErrBadOrigin = errors.New("bad origin")

// AuthorityOrigin gates privileged operations (force-finalising disputes).
// The embedding runtime decides what "authority" means; the engines only ask.
type AuthorityOrigin interface {
	EnsureAuthority(who Address) error
}

// StaticAuthority grants authority to a fixed set of accounts.
type StaticAuthority map[Address]struct{}

func NewStaticAuthority(accounts ...Address) StaticAuthority {
	s := make(StaticAuthority, len(accounts))
	for _, a := range accounts {
		s[a] = struct{}{}
	}
	return s
}

func (s StaticAuthority) EnsureAuthority(who Address) error {
	if _, ok := s[who]; !ok {
		return ErrBadOrigin
	}
	return nil
}
