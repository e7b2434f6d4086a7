package curve

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BaseCurrency identifies the reserve asset backing a curve. The set is
// closed: every deployed token trades against exactly one of these mints.
type BaseCurrency uint8

const (
	BaseBUSD BaseCurrency = iota
	BaseFRBTC
)

var baseMints = map[BaseCurrency]solana.PublicKey{
	BaseBUSD:  solana.MustPublicKeyFromBase58("BUSDimWsjV5JqsCQyBHyrbpyFMEh8tPcZHf745pNHPfu"),
	BaseFRBTC: solana.MustPublicKeyFromBase58("FRBTCzGvtPa7meyCCvSbYZae5nKVtHHRFD8bZKsVCPZ4"),
}

// Mint returns the mint address of the base currency.
func (b BaseCurrency) Mint() solana.PublicKey {
	return baseMints[b]
}

func (b BaseCurrency) String() string {
	switch b {
	case BaseBUSD:
		return "BUSD"
	case BaseFRBTC:
		return "FRBTC"
	default:
		return fmt.Sprintf("BaseCurrency(%d)", uint8(b))
	}
}

// Valid reports whether b is a member of the enumeration.
func (b BaseCurrency) Valid() bool {
	_, ok := baseMints[b]
	return ok
}

// ParseBaseCurrency maps a symbol to its enumeration value. The empty
// string defaults to BUSD.
func ParseBaseCurrency(s string) (BaseCurrency, error) {
	switch s {
	case "BUSD", "busd", "":
		return BaseBUSD, nil
	case "FRBTC", "frbtc":
		return BaseFRBTC, nil
	default:
		return 0, fmt.Errorf("unknown base currency %q", s)
	}
}
