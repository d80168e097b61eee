// README: Recent search entries kept per session.
package history

import (
	"time"

	"wayfinder/internal/types"
)

// MaxRecent is how many recent searches are kept per session.
const MaxRecent = 10

type Entry struct {
	SessionID   types.ID    `json:"session_id"`
	LocationID  types.ID    `json:"location_id"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Coordinates types.Point `json:"coordinates"`
	SearchedAt  time.Time   `json:"searched_at"`
}
