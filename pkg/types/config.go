package types

// Mode selects whether the Gate forwards sized opportunities to the
// Executor (live) or to the persistence-only sink (dry).
type Mode string

const (
	ModeDry  Mode = "dry"
	ModeLive Mode = "live"
)

// SymbolMapping binds one unified symbol to its per-venue identifiers.
// Loaded once at boot from the symbol-mapping JSON file and treated as an
// immutable value thereafter.
type SymbolMapping struct {
	UnifiedSymbol string `json:"unified_symbol"`
	Description   string `json:"description"`
	VenueATicker  string `json:"venue_a_ticker"`
	VenueBYesID   string `json:"venue_b_yes_id"`
	VenueBNoID    string `json:"venue_b_no_id"`
}

// ExecutionConfig is the JSON-loaded execution policy.
type ExecutionConfig struct {
	Mode                 Mode    `json:"mode"`
	MaxCapitalPerMarket  string  `json:"max_capital_per_market"`
	MaxContractsPerEvent int64   `json:"max_contracts_per_event"`
	MinNetProfit         string  `json:"min_net_profit"`
	MaxStaleSeconds      float64 `json:"max_stale_seconds"`
	CooldownSeconds      float64 `json:"cooldown_seconds"`
}
