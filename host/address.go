// Package host defines the capabilities the funding engines consume from the
// embedding chain runtime: account addressing, the multi-currency ledger and
// the block counter. The engines never talk to a concrete chain, only to
// these interfaces; mock implementations live alongside them for tests and
// the demo daemon.
package host

import (
	"fmt"
	"strings"
)

type AddressDomain string

const (
	AddressDomainUser   AddressDomain = "user"
	AddressDomainPallet AddressDomain = "pallet"
	AddressDomainSystem AddressDomain = "system"
)

type Address string

// String returns the literal representation (like user:alice) of the address.
func (a Address) String() string {
	return string(a)
}

// Domain quickly checks the prefix to tell user accounts from derived pallet
// custody accounts and system accounts.
func (a Address) Domain() AddressDomain {
	if strings.HasPrefix(a.String(), "system:") {
		return AddressDomainSystem
	}
	if strings.HasPrefix(a.String(), "pallet:") {
		return AddressDomainPallet
	}
	return AddressDomainUser
}

// IsValid is a light sanity check used on the dispatch surface.
func (a Address) IsValid() bool {
	return a != "" && !strings.Contains(a.String(), "//")
}

// SubAccount derives the custody sub-account of a pallet account for a given
// key. The derivation is pure string concatenation, so it is reproducible and
// two distinct keys can never collide ("//" is rejected in user addresses).
func SubAccount(base Address, key uint64) Address {
	return Address(fmt.Sprintf("%s//%d", base, key))
}
