package reconcile

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/attestia/trustengine/pkg/trust"
)

// decimalToRaw parses a decimal-string amount (e.g. "1.000000") into the
// big-integer value it represents at the given decimal precision, i.e.
// amount x 10^decimals. The string's own fractional digit count must not
// exceed decimals.
func decimalToRaw(amount string, decimals int) (*big.Int, error) {
	neg := false
	if strings.HasPrefix(amount, "-") {
		neg = true
		amount = amount[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(amount, ".")
	if !hasFrac {
		fracPart = ""
	}
	if len(fracPart) > decimals {
		return nil, trust.New(trust.CodeValidationFailed, fmt.Sprintf("amount %q has more fractional digits than decimals=%d", amount, decimals))
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}

	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, trust.New(trust.CodeValidationFailed, fmt.Sprintf("amount %q is not a valid decimal", amount))
	}
	if neg {
		raw.Neg(raw)
	}
	return raw, nil
}

// scaleTo scales raw from its own decimal precision up to toDecimals
// (toDecimals must be >= fromDecimals).
func scaleTo(raw *big.Int, fromDecimals, toDecimals int) *big.Int {
	if toDecimals <= fromDecimals {
		return raw
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(toDecimals-fromDecimals)), nil)
	return new(big.Int).Mul(raw, factor)
}

// compareCrossDecimal compares a decimal-string amount at ledgerDecimals
// precision against a raw-integer-string chain amount at chainDecimals
// precision, scaling both to their common maximum decimal basis.
func compareCrossDecimal(ledgerAmount string, ledgerDecimals int, chainRawAmount string, chainDecimals int) (bool, string, error) {
	rawL, err := decimalToRaw(ledgerAmount, ledgerDecimals)
	if err != nil {
		return false, "", err
	}
	rawC, ok := new(big.Int).SetString(chainRawAmount, 10)
	if !ok {
		return false, "", trust.New(trust.CodeValidationFailed, fmt.Sprintf("chain amount %q is not a valid integer", chainRawAmount))
	}

	maxDecimals := ledgerDecimals
	if chainDecimals > maxDecimals {
		maxDecimals = chainDecimals
	}

	scaledL := scaleTo(rawL, ledgerDecimals, maxDecimals)
	scaledC := scaleTo(rawC, chainDecimals, maxDecimals)

	if scaledL.Cmp(scaledC) == 0 {
		return true, "", nil
	}
	return false, fmt.Sprintf("amount mismatch on a %d-decimal basis: ledger=%s chain=%s", maxDecimals, scaledL.String(), scaledC.String()), nil
}
