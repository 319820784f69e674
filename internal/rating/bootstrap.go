package rating

import (
	"fmt"

	"github.com/mauv0809/match-ledger/internal/ledger"
)

const (
	BootstrapNone             = "none"
	BootstrapFixed            = "fixed"
	BootstrapSinglesThenFixed = "singles_then_fixed"
)

// BootstrapConfig selects how unrated participants get a starting rating.
type BootstrapConfig struct {
	Strategy string  `yaml:"strategy"`
	Fixed    float64 `yaml:"fixed"`
}

// NewBootstrap returns the Bootstrap for cfg, or nil for the "none" strategy.
func NewBootstrap(cfg BootstrapConfig) (Bootstrap, error) {
	switch cfg.Strategy {
	case "", BootstrapNone:
		return nil, nil
	case BootstrapFixed:
		if cfg.Fixed <= 0 {
			return nil, fmt.Errorf("bootstrap %s needs a positive fixed rating", cfg.Strategy)
		}
		return fixedBootstrap{rating: cfg.Fixed}, nil
	case BootstrapSinglesThenFixed:
		if cfg.Fixed <= 0 {
			return nil, fmt.Errorf("bootstrap %s needs a positive fixed rating", cfg.Strategy)
		}
		return singlesThenFixed{fixed: cfg.Fixed}, nil
	}
	return nil, fmt.Errorf("unknown bootstrap strategy %q", cfg.Strategy)
}

type fixedBootstrap struct {
	rating float64
}

func (b fixedBootstrap) Initial(_ *Player, _ ledger.Mode) (float64, bool) {
	return b.rating, true
}

// singlesThenFixed seeds a doubles rating from the player's singles rating
// when there is one.
type singlesThenFixed struct {
	fixed float64
}

func (b singlesThenFixed) Initial(p *Player, mode ledger.Mode) (float64, bool) {
	if mode == ledger.ModeDoubles && p != nil && p.SinglesRating != nil {
		return *p.SinglesRating, true
	}
	return b.fixed, true
}
