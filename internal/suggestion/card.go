// Package suggestion turns an aggregate payload and optional AI text into
// an ordered list of advice cards.
package suggestion

// CardType is the visual category of a card.
type CardType string

// Card types.
const (
	TypeHealth  CardType = "health"
	TypeInfo    CardType = "info"
	TypeWarning CardType = "warning"
	TypeDanger  CardType = "danger"
)

// Priority ranks a card. High priority cards carry an "Important" badge.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Card is one piece of derived advice.
type Card struct {
	Icon     string   `json:"icon"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Type     CardType `json:"type"`
	Priority Priority `json:"priority"`
	Source   string   `json:"source"`
}

// Important reports whether the card is badged.
func (c Card) Important() bool {
	return c.Priority == PriorityHigh
}
