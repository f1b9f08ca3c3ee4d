package allocation

import "github.com/folira/folira/internal/domain/asset"

// taxEquivalents maps US-domiciled ETFs to their Irish-domiciled UCITS
// counterparts, which are more tax-efficient for non-US investors through
// lower dividend withholding treaty rates.
var taxEquivalents = map[string]string{
	"VTI": "VUSA-IE",
	"QQQ": "EQQQ-IE",
	"SPY": "CSPX-IE",
}

// TaxAdvantagedEquivalent returns the tax-efficient twin of symbol, if one
// exists.  Assets already held in a tax-advantaged domicile are never
// substituted.  The swap is ticker-only: the weight assigned to the original
// asset carries over unchanged.
func TaxAdvantagedEquivalent(symbol string, d asset.Domicile) (string, bool) {
	if d != asset.DomicileTaxable {
		return symbol, false
	}
	twin, ok := taxEquivalents[symbol]
	if !ok {
		return symbol, false
	}
	return twin, true
}
