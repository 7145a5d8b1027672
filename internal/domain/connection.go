package domain

import "time"

// Connection links two items. Direction is kept for rendering only; a pair
// may be connected at most once regardless of direction.
type Connection struct {
	ID        string    `json:"id"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Touches reports whether itemID is one of the connection's endpoints.
func (c Connection) Touches(itemID string) bool {
	return c.FromID == itemID || c.ToID == itemID
}

// Joins reports whether the connection links a and b in either direction.
func (c Connection) Joins(a, b string) bool {
	return (c.FromID == a && c.ToID == b) || (c.FromID == b && c.ToID == a)
}
