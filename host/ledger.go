package host

// Balance is the fungible unit shared by contributions, vote weights and
// treasury amounts.
type Balance = uint64

type CurrencyID string

const (
	CurrencyNative CurrencyID = "native"
	CurrencyUSDT   CurrencyID = "usdt"
	CurrencyKSM    CurrencyID = "ksm"
)

// String returns the raw ticker string for logging or host calls.
func (c CurrencyID) String() string {
	return string(c)
}

// CurrencyLedger is the reserve/transfer capability of the embedding runtime.
// Every call is atomic and synchronous from the engines' perspective; a
// returned error means nothing moved.
type CurrencyLedger interface {
	Reserve(currency CurrencyID, who Address, amount Balance) error
	Unreserve(currency CurrencyID, who Address, amount Balance)
	Transfer(currency CurrencyID, from, to Address, amount Balance) error
	FreeBalance(currency CurrencyID, who Address) Balance
}
