package host

import "errors"

var (
	ErrInsufficientBalance  = errors.New("insufficient free balance")
	ErrInsufficientReserved = errors.New("insufficient reserved balance")
)

type balanceKey struct {
	currency CurrencyID
	who      Address
}

// MockLedger is the in-memory CurrencyLedger used by tests and the demo
// daemon. Free and reserved balances are tracked per (currency, account) and
// every operation either fully applies or fully fails.
type MockLedger struct {
	free     map[balanceKey]Balance
	reserved map[balanceKey]Balance
}

func NewMockLedger() *MockLedger {
	return &MockLedger{
		free:     make(map[balanceKey]Balance),
		reserved: make(map[balanceKey]Balance),
	}
}

// Deposit credits an account out of thin air, the test-side faucet.
func (m *MockLedger) Deposit(currency CurrencyID, who Address, amount Balance) {
	m.free[balanceKey{currency, who}] += amount
}

func (m *MockLedger) Reserve(currency CurrencyID, who Address, amount Balance) error {
	k := balanceKey{currency, who}
	if m.free[k] < amount {
		return ErrInsufficientBalance
	}
	m.free[k] -= amount
	m.reserved[k] += amount
	return nil
}

func (m *MockLedger) Unreserve(currency CurrencyID, who Address, amount Balance) {
	k := balanceKey{currency, who}
	if m.reserved[k] < amount {
		// Unreserve is best-effort like the runtime's: release what is there.
		amount = m.reserved[k]
	}
	m.reserved[k] -= amount
	m.free[k] += amount
}

func (m *MockLedger) Transfer(currency CurrencyID, from, to Address, amount Balance) error {
	k := balanceKey{currency, from}
	if m.free[k] < amount {
		return ErrInsufficientBalance
	}
	m.free[k] -= amount
	m.free[balanceKey{currency, to}] += amount
	return nil
}

func (m *MockLedger) FreeBalance(currency CurrencyID, who Address) Balance {
	return m.free[balanceKey{currency, who}]
}

// ReservedBalance is exposed for assertions on deposit handling.
func (m *MockLedger) ReservedBalance(currency CurrencyID, who Address) Balance {
	return m.reserved[balanceKey{currency, who}]
}
