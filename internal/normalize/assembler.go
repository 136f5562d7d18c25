package normalize

import (
	"sync"
	"time"

	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// Assembler reassembles independently-emitted YES/NO half-ticks into a
// full types.NormalizedTick, one instance per venue that emits the two
// sides as separate events. The receipt timestamp advances
// on every half-update, matching the "shared timestamp" rule; the
// assembler itself never ages an entry — staleness is judged downstream
// by the Opportunity Gate.
type Assembler struct {
	venue types.Venue

	mu      sync.Mutex
	symbols map[string]*symbolState
}

type symbolState struct {
	yesAsk, yesAskSize, yesBid decimal.Decimal
	noAsk, noAskSize, noBid    decimal.Decimal
	haveYes, haveNo            bool
	yesAskExplicit             bool
	noAskExplicit              bool
	tsVenue                    time.Time
}

// NewAssembler creates an Assembler for one venue.
func NewAssembler(venue types.Venue) *Assembler {
	return &Assembler{venue: venue, symbols: make(map[string]*symbolState)}
}

// Ingest folds one HalfTick into the assembler's per-symbol state. It
// returns a full tick and true only once both sides are present; until
// then it returns the zero value and false.
//
// When a side's ask was not explicitly supplied, it is derived from the
// opposite side's best bid (`1 − opposite_bid`), applied symmetrically to
// either side: explicit quotes are always preferred over the derived
// approximation.
func (a *Assembler) Ingest(h HalfTick) (types.NormalizedTick, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.symbols[h.UnifiedSymbol]
	if !ok {
		s = &symbolState{}
		a.symbols[h.UnifiedSymbol] = s
	}

	switch h.Side {
	case types.SideYes:
		s.yesAsk = h.Ask
		s.yesAskSize = h.AskSize
		s.yesBid = h.Bid
		s.yesAskExplicit = h.HasExplicitAsk
		s.haveYes = true
	case types.SideNo:
		s.noAsk = h.Ask
		s.noAskSize = h.AskSize
		s.noBid = h.Bid
		s.noAskExplicit = h.HasExplicitAsk
		s.haveNo = true
	}

	if h.VenueTime.After(s.tsVenue) {
		s.tsVenue = h.VenueTime
	}

	if !s.haveYes || !s.haveNo {
		return types.NormalizedTick{}, false
	}

	if !s.yesAskExplicit {
		s.yesAsk = one.Sub(s.noBid)
	}
	if !s.noAskExplicit {
		s.noAsk = one.Sub(s.yesBid)
	}

	return types.NormalizedTick{
		Venue:         a.venue,
		UnifiedSymbol: h.UnifiedSymbol,
		YesAsk:        s.yesAsk,
		NoAsk:         s.noAsk,
		YesAskSize:    s.yesAskSize,
		NoAskSize:     s.noAskSize,
		TsVenue:       s.tsVenue,
		TsLocal:       time.Now(),
	}, true
}
