package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundgate/host"
)

func TestAddressDomains(t *testing.T) {
	assert.Equal(t, host.AddressDomainUser, host.Address("user:alice").Domain())
	assert.Equal(t, host.AddressDomainPallet, host.Address("pallet:fundgate").Domain())
	assert.Equal(t, host.AddressDomainSystem, host.Address("system:root").Domain())
}

func TestAddressValidity(t *testing.T) {
	assert.True(t, host.Address("user:alice").IsValid())
	assert.False(t, host.Address("").IsValid())
	// "//" is the sub-account separator, user addresses must never carry it.
	assert.False(t, host.Address("user:al//ice").IsValid())
}

func TestSubAccountDerivation(t *testing.T) {
	base := host.Address("pallet:fundgate")
	assert.Equal(t, host.Address("pallet:fundgate//7"), host.SubAccount(base, 7))
	assert.NotEqual(t, host.SubAccount(base, 1), host.SubAccount(base, 11))
}

func TestMockLedgerReserveAndTransfer(t *testing.T) {
	l := host.NewMockLedger()
	alice := host.Address("user:alice")
	bob := host.Address("user:bob")

	l.Deposit(host.CurrencyNative, alice, 100)
	assert.ErrorIs(t, l.Reserve(host.CurrencyNative, alice, 200), host.ErrInsufficientBalance)
	require.NoError(t, l.Reserve(host.CurrencyNative, alice, 60))
	assert.Equal(t, host.Balance(40), l.FreeBalance(host.CurrencyNative, alice))
	assert.Equal(t, host.Balance(60), l.ReservedBalance(host.CurrencyNative, alice))

	// Reserved funds are not transferable.
	assert.ErrorIs(t, l.Transfer(host.CurrencyNative, alice, bob, 50), host.ErrInsufficientBalance)

	l.Unreserve(host.CurrencyNative, alice, 60)
	require.NoError(t, l.Transfer(host.CurrencyNative, alice, bob, 50))
	assert.Equal(t, host.Balance(50), l.FreeBalance(host.CurrencyNative, bob))
}

func TestMockLedgerUnreserveIsBestEffort(t *testing.T) {
	l := host.NewMockLedger()
	alice := host.Address("user:alice")
	l.Deposit(host.CurrencyUSDT, alice, 10)
	require.NoError(t, l.Reserve(host.CurrencyUSDT, alice, 10))

	// Asking for more than is reserved releases what is there and stops.
	l.Unreserve(host.CurrencyUSDT, alice, 999)
	assert.Equal(t, host.Balance(10), l.FreeBalance(host.CurrencyUSDT, alice))
	assert.Equal(t, host.Balance(0), l.ReservedBalance(host.CurrencyUSDT, alice))
}

func TestMockLedgerKeepsCurrenciesApart(t *testing.T) {
	l := host.NewMockLedger()
	alice := host.Address("user:alice")
	l.Deposit(host.CurrencyUSDT, alice, 10)
	assert.Equal(t, host.Balance(0), l.FreeBalance(host.CurrencyNative, alice))
}

func TestStaticAuthority(t *testing.T) {
	auth := host.NewStaticAuthority("system:root")
	assert.NoError(t, auth.EnsureAuthority("system:root"))
	assert.ErrorIs(t, auth.EnsureAuthority("user:alice"), host.ErrBadOrigin)
}

func TestCounterClock(t *testing.T) {
	c := host.NewCounter(5)
	assert.Equal(t, uint64(5), c.Number())
	assert.Equal(t, uint64(6), c.Advance())
	c.Set(100)
	assert.Equal(t, uint64(100), c.Number())
}
