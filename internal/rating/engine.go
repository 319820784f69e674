package rating

import (
	"fmt"
	"math"

	"github.com/mauv0809/match-ledger/internal/ledger"
)

// Config is the rating policy. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Scale               float64                   `yaml:"scale"`
	MarginWeight        float64                   `yaml:"margin_weight"`
	Precision           int                       `yaml:"precision"`
	DoublesBlend        float64                   `yaml:"doubles_blend"`
	PerPlayerWeighting  bool                      `yaml:"per_player_weighting"`
	KFactors            map[ledger.Format]float64 `yaml:"k_factors"`
	Bootstrap           BootstrapConfig           `yaml:"bootstrap"`
	MaxFinalizeAttempts int                       `yaml:"max_finalize_attempts"`
}

// DefaultConfig returns the built-in rating policy.
func DefaultConfig() Config {
	return Config{
		Scale:        1.0,
		MarginWeight: 0.5,
		Precision:    3,
		DoublesBlend: 0.5,
		KFactors: map[ledger.Format]float64{
			ledger.Format6Game: 0.10,
			ledger.Format4Game: 0.07,
			ledger.FormatTB11:  0.05,
			ledger.FormatTB10:  0.05,
			ledger.FormatTB7:   0.04,
		},
		Bootstrap:           BootstrapConfig{Strategy: BootstrapNone},
		MaxFinalizeAttempts: 3,
	}
}

// Validate checks the policy for values the engine cannot work with.
func (c Config) Validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	if c.MarginWeight < 0 || c.MarginWeight > 1 {
		return fmt.Errorf("margin_weight must be within [0, 1], got %v", c.MarginWeight)
	}
	if c.DoublesBlend < 0 || c.DoublesBlend > 1 {
		return fmt.Errorf("doubles_blend must be within [0, 1], got %v", c.DoublesBlend)
	}
	if c.Precision < 0 || c.Precision > 9 {
		return fmt.Errorf("precision must be within [0, 9], got %d", c.Precision)
	}
	if c.MaxFinalizeAttempts < 1 {
		return fmt.Errorf("max_finalize_attempts must be at least 1, got %d", c.MaxFinalizeAttempts)
	}
	for _, f := range ledger.Formats {
		if k, ok := c.KFactors[f]; !ok || k <= 0 {
			return fmt.Errorf("k factor for %s must be positive", f)
		}
	}
	_, err := NewBootstrap(c.Bootstrap)
	return err
}

// Engine computes rating adjustments. It is pure; reading and writing
// ratings is done by the Adjuster.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Input is a finalized result with every participant's current rating.
type Input struct {
	Mode           ledger.Mode
	Format         ledger.Format
	ScoreInitiator int
	ScoreOpponent  int
	Ratings        map[ledger.Slot]float64
}

// Compute returns one Adjustment per participant slot, in slot order.
func (e *Engine) Compute(in Input) ([]Adjustment, error) {
	k, ok := e.cfg.KFactors[in.Format]
	if !ok {
		return nil, fmt.Errorf("no k factor for format %q", in.Format)
	}
	total := in.ScoreInitiator + in.ScoreOpponent
	if total <= 0 || in.ScoreInitiator == in.ScoreOpponent {
		return nil, fmt.Errorf("cannot rate score %d-%d", in.ScoreInitiator, in.ScoreOpponent)
	}
	for _, slot := range in.Mode.Slots() {
		if _, ok := in.Ratings[slot]; !ok {
			return nil, fmt.Errorf("missing rating for slot %s", slot)
		}
	}

	var initSide, oppSide []ledger.Slot
	for _, slot := range in.Mode.Slots() {
		if slot.InitiatorSide() {
			initSide = append(initSide, slot)
		} else {
			oppSide = append(oppSide, slot)
		}
	}

	initRating := e.sideRating(in.Ratings, initSide)
	oppRating := e.sideRating(in.Ratings, oppSide)
	initDelta := e.sideDelta(k, initRating, oppRating, in.ScoreInitiator, total)
	oppDelta := e.sideDelta(k, oppRating, initRating, in.ScoreOpponent, total)

	var out []Adjustment
	out = append(out, e.split(in.Ratings, initSide, initDelta)...)
	out = append(out, e.split(in.Ratings, oppSide, oppDelta)...)
	return out, nil
}

// sideRating blends a doubles pair, weighting the stronger partner by
// DoublesBlend. A singles side is the player's own rating.
func (e *Engine) sideRating(ratings map[ledger.Slot]float64, side []ledger.Slot) float64 {
	if len(side) == 1 {
		return ratings[side[0]]
	}
	hi := math.Max(ratings[side[0]], ratings[side[1]])
	lo := math.Min(ratings[side[0]], ratings[side[1]])
	return e.cfg.DoublesBlend*hi + (1-e.cfg.DoublesBlend)*lo
}

func (e *Engine) sideDelta(k, own, opp float64, ownGames, totalGames int) float64 {
	expected := 1 / (1 + math.Pow(10, (opp-own)/e.cfg.Scale))
	win := 0.0
	if ownGames*2 > totalGames {
		win = 1
	}
	actual := (1-e.cfg.MarginWeight)*win + e.cfg.MarginWeight*float64(ownGames)/float64(totalGames)
	delta := k * (actual - expected)
	// A win never costs rating and a loss never earns it.
	if win == 1 {
		return math.Max(delta, 0)
	}
	return math.Min(delta, 0)
}

func (e *Engine) split(ratings map[ledger.Slot]float64, side []ledger.Slot, delta float64) []Adjustment {
	out := make([]Adjustment, 0, len(side))
	for i, slot := range side {
		d := delta
		if len(side) == 2 && e.cfg.PerPlayerWeighting {
			own := ratings[slot]
			partner := ratings[side[1-i]]
			if own+partner > 0 {
				d = 2 * delta * partner / (own + partner)
			}
		}
		d = e.round(d)
		before := ratings[slot]
		out = append(out, Adjustment{
			Slot:   slot,
			Before: before,
			After:  e.round(before + d),
			Delta:  d,
		})
	}
	return out
}

func (e *Engine) round(v float64) float64 {
	p := math.Pow(10, float64(e.cfg.Precision))
	r := math.Round(v*p) / p
	if r == 0 {
		// Avoid negative zero.
		return 0
	}
	return r
}
