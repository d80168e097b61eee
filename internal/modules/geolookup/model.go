// README: Location is the resolved place every click, search and GPS fix turns into.
package geolookup

import (
	"errors"

	"github.com/google/uuid"

	"wayfinder/internal/types"
)

// ErrLookupFailed tags geocoding failures that were recovered locally.
var ErrLookupFailed = errors.New("lookup failed")

// Location is immutable once built. Identity is ID; two locations at the
// same coordinates from different lookups are distinct.
type Location struct {
	ID          types.ID    `json:"id"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Coordinates types.Point `json:"coordinates"`
	// ProviderID is the geocoder's own place id, empty for synthesized locations.
	ProviderID string `json:"provider_id,omitempty"`
}

func newID() types.ID {
	return types.ID(uuid.NewString())
}

// Entry is what the cache keeps for a lookup. It carries no identity.
type Entry struct {
	Name    string      `json:"name"`
	Address string      `json:"address"`
	Point   types.Point `json:"point"`
	// ProviderID is stable across reads, unlike ID.
	ProviderID string `json:"provider_id,omitempty"`
}

func (c Entry) location() Location {
	return Location{ID: newID(), Name: c.Name, Address: c.Address, Coordinates: c.Point, ProviderID: c.ProviderID}
}
