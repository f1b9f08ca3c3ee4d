package marketdata

// Static tables served when the provider is unreachable or returns an
// unusable payload.  Values are fixed so every fallback run is reproducible.

// fallbackDefaultPrice prices symbols absent from the quote table.
const fallbackDefaultPrice = 100.0

// fallbackVolume clears the liquidity screen for every fallback symbol.
const fallbackVolume = 25_000_000.0

var fallbackPrices = map[string]float64{
	"SPY":     480.75,
	"VOO":     440.35,
	"QQQ":     420.55,
	"VTI":     245.80,
	"VXUS":    58.70,
	"VEA":     49.25,
	"VWO":     42.65,
	"BND":     72.40,
	"BNDX":    49.85,
	"VNQ":     85.60,
	"VUSA-IE": 88.25,
	"EQQQ-IE": 370.40,
	"CSPX-IE": 485.30,
	"VIG":     180.40,
	"SCHD":    78.55,
	"XLK":     210.30,
	"IWM":     198.45,
	"VGT":     470.85,
	"ARKK":    45.65,
	"ARKW":    65.80,
}

var fallbackETFs = []ETF{
	{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Price: 250.0, Exchange: "NYSE"},
	{Symbol: "VOO", Name: "Vanguard S&P 500 ETF", Price: 430.0, Exchange: "NYSE"},
	{Symbol: "QQQ", Name: "Invesco QQQ Trust", Price: 410.0, Exchange: "NASDAQ"},
	{Symbol: "VXUS", Name: "Vanguard Total International Stock ETF", Price: 60.0, Exchange: "NASDAQ"},
	{Symbol: "VEA", Name: "Vanguard FTSE Developed Markets ETF", Price: 48.0, Exchange: "NYSE"},
	{Symbol: "VWO", Name: "Vanguard FTSE Emerging Markets ETF", Price: 42.0, Exchange: "NYSE"},
	{Symbol: "BND", Name: "Vanguard Total Bond Market ETF", Price: 72.0, Exchange: "NASDAQ"},
	{Symbol: "BNDX", Name: "Vanguard Total International Bond ETF", Price: 48.0, Exchange: "NASDAQ"},
	{Symbol: "VNQ", Name: "Vanguard Real Estate ETF", Price: 85.0, Exchange: "NYSE"},
	{Symbol: "VUSA-IE", Name: "Vanguard S&P 500 UCITS ETF", Price: 85.0, Exchange: "LSE"},
	{Symbol: "EQQQ-IE", Name: "Invesco NASDAQ-100 UCITS ETF", Price: 370.0, Exchange: "LSE"},
	{Symbol: "CSPX-IE", Name: "iShares Core S&P 500 UCITS ETF", Price: 480.0, Exchange: "LSE"},
}

// FallbackUniverse returns a copy of the static candidate universe.
func FallbackUniverse() []ETF {
	out := make([]ETF, len(fallbackETFs))
	copy(out, fallbackETFs)
	return out
}

// FallbackQuotes builds deterministic quotes for the given symbols from the
// static price table.  Unknown symbols get fallbackDefaultPrice; every quote
// reports zero change and a volume above the liquidity cutoff.
func FallbackQuotes(symbols []string) map[string]Quote {
	out := make(map[string]Quote, len(symbols))
	for _, sym := range symbols {
		price, ok := fallbackPrices[sym]
		if !ok {
			price = fallbackDefaultPrice
		}
		out[sym] = Quote{
			Symbol: sym,
			Price:  price,
			Volume: fallbackVolume,
		}
	}
	return out
}
