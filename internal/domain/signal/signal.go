// Package signal maps a rank and a confidence to a recommendation. Every
// function here is pure; nothing is remembered between calls.
//
// The confidence tiers and expected-return buckets are fixed heuristics for
// display. They are not calibrated statistics and promise nothing.
package signal

// Labels, checked in this order.
const (
	StrongBuy = "STRONG_BUY"
	Buy       = "BUY"
	Hold      = "HOLD"
	Wait      = "WAIT"
)

// Group-level recommendations.
const (
	StrongBet   = "STRONG_BET"
	Bet         = "BET"
	CautiousBet = "CAUTIOUS_BET"
	HoldBet     = "HOLD"
)

// Race difficulty labels.
const (
	Easy      = "EASY"
	Moderate  = "MODERATE"
	Difficult = "DIFFICULT"
	Unknown   = "UNKNOWN"
)

// DefaultThreshold is the confidence needed for STRONG_BUY.
const DefaultThreshold = 0.65

const (
	buyMargin         = 0.10
	holdMargin        = 0.15
	cautiousMargin    = 0.20
	easyGap           = 0.3
	moderateGap       = 0.1
	tierVeryHigh      = 0.85
	tierHigh          = 0.75
	tierModerate      = 0.65
	tierLow           = 0.55
	recommendWin      = "Place WIN bet"
	recommendPlace    = "Place PLACE or EXACTA bet"
	recommendExotic   = "Consider for TRIFECTA or FIRST FOUR"
	recommendWaitText = "Insufficient confidence - wait for better odds"
)

// Signal is the recommendation for one ranked entity.
type Signal struct {
	Label          string
	Recommendation string
	Tier           string
	ExpectedReturn string
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithThreshold sets the STRONG_BUY confidence threshold. Values outside
// (0,1] are ignored.
func WithThreshold(t float64) Option {
	return func(g *Generator) {
		if t > 0 && t <= 1 {
			g.threshold = t
		}
	}
}

// Generator holds the threshold T. It is immutable after construction.
type Generator struct {
	threshold float64
}

// NewGenerator creates a generator with DefaultThreshold unless overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns T.
func (g *Generator) Threshold() float64 { return g.threshold }

// Generate applies the first matching rule:
//
//	rank == 1 and conf >= T      -> STRONG_BUY
//	rank <= 2 and conf >= T-0.10 -> BUY
//	conf >= T-0.15               -> HOLD
//	otherwise                    -> WAIT
func (g *Generator) Generate(rank int, conf float64) Signal {
	s := Signal{Tier: ConfidenceTier(conf), ExpectedReturn: ExpectedReturn(conf)}
	switch {
	case rank == 1 && conf >= g.threshold:
		s.Label, s.Recommendation = StrongBuy, recommendWin
	case rank >= 1 && rank <= 2 && conf >= g.threshold-buyMargin:
		s.Label, s.Recommendation = Buy, recommendPlace
	case conf >= g.threshold-holdMargin:
		s.Label, s.Recommendation = Hold, recommendExotic
	default:
		s.Label, s.Recommendation = Wait, recommendWaitText
	}
	return s
}

// Overall grades a whole group from the confidence of its top entity.
func (g *Generator) Overall(topConfidence float64) string {
	switch {
	case topConfidence >= g.threshold:
		return StrongBet
	case topConfidence >= g.threshold-buyMargin:
		return Bet
	case topConfidence >= g.threshold-cautiousMargin:
		return CautiousBet
	default:
		return HoldBet
	}
}

// ConfidenceTier buckets a confidence at 0.55, 0.65, 0.75 and 0.85.
func ConfidenceTier(conf float64) string {
	switch {
	case conf >= tierVeryHigh:
		return "VERY_HIGH"
	case conf >= tierHigh:
		return "HIGH"
	case conf >= tierModerate:
		return "MODERATE"
	case conf >= tierLow:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// ExpectedReturn is an illustrative return bucket on the same breakpoints.
func ExpectedReturn(conf float64) string {
	switch {
	case conf >= tierVeryHigh:
		return "15-25%"
	case conf >= tierHigh:
		return "10-15%"
	case conf >= tierModerate:
		return "5-10%"
	case conf >= tierLow:
		return "0-5%"
	default:
		return "Negative expected value"
	}
}

// RaceDifficulty compares the best two fused scores of a group, given best
// first. Fewer than two scores is UNKNOWN.
func RaceDifficulty(sorted []float64) string {
	if len(sorted) < 2 {
		return Unknown
	}
	gap := sorted[0] - sorted[1]
	switch {
	case gap > easyGap:
		return Easy
	case gap > moderateGap:
		return Moderate
	default:
		return Difficult
	}
}
