// Package normalize implements the per-venue tick normalization contract
// and the Partial-Tick Assembler. The venue-to-symbol table is an
// immutable value built once at boot, not a mutable package-global.
package normalize

import "github.com/parityarb/xvenue-arb/pkg/types"

// SymbolTable is an immutable, boot-time-constructed mapping from each
// venue's native market identifier to the unified symbol traded across
// both venues. It is safe for concurrent read access by any number of
// normalizers.
type SymbolTable struct {
	native map[types.Venue]map[string]string
}

// NewSymbolTable builds a table from the persisted symbol mapping file.
// Each venue-native identifier must be unique within its venue;
// duplicates are resolved in favor of the first entry.
func NewSymbolTable(mappings []types.SymbolMapping) *SymbolTable {
	t := &SymbolTable{native: map[types.Venue]map[string]string{
		types.VenueStream: make(map[string]string),
		types.VenueRPC:    make(map[string]string),
	}}

	for _, m := range mappings {
		if _, ok := t.native[types.VenueStream][m.VenueATicker]; !ok {
			t.native[types.VenueStream][m.VenueATicker] = m.UnifiedSymbol
		}
		if _, ok := t.native[types.VenueRPC][m.VenueBYesID]; !ok {
			t.native[types.VenueRPC][m.VenueBYesID] = m.UnifiedSymbol
		}
		if _, ok := t.native[types.VenueRPC][m.VenueBNoID]; !ok {
			t.native[types.VenueRPC][m.VenueBNoID] = m.UnifiedSymbol
		}
	}

	return t
}

// Unified maps a venue-native identifier to its unified symbol. The second
// return value is false when the identifier carries no recognized mapping,
// in which case the caller must drop the message.
func (t *SymbolTable) Unified(venue types.Venue, nativeID string) (string, bool) {
	byNative, ok := t.native[venue]
	if !ok {
		return "", false
	}
	symbol, ok := byNative[nativeID]
	return symbol, ok
}

// NativeIDs returns every venue-native identifier this table knows about,
// keyed by venue, for the boot-time Subscribe call each gateway makes.
func (t *SymbolTable) NativeIDs() map[types.Venue][]string {
	out := make(map[types.Venue][]string, len(t.native))
	for venue, byNative := range t.native {
		ids := make([]string, 0, len(byNative))
		for id := range byNative {
			ids = append(ids, id)
		}
		out[venue] = ids
	}
	return out
}
