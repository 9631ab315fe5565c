package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit represents a card suit in Big Two order (lowest first).
type Suit int

const (
	Diamonds Suit = iota
	Clubs
	Hearts
	Spades
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank. Three is the lowest rank and Two the highest.
type Rank int

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	case Two:
		return "2"
	default:
		return "?"
	}
}

// Size is the number of cards in a full deck.
const Size = 52

// Lowest is the card whose holder opens every round (3♦).
const Lowest Card = 0

// Card is a card identifier in 0..51. Identifiers sort in game order:
// id = rank*4 + suit.
type Card uint8

// NewCard creates a card from a suit and rank.
func NewCard(suit Suit, rank Rank) Card {
	return Card(int(rank)*4 + int(suit))
}

// Valid reports whether c is one of the 52 identifiers.
func (c Card) Valid() bool {
	return int(c) < Size
}

// Suit returns the card's suit.
func (c Card) Suit() Suit {
	return Suit(int(c) % 4)
}

// Rank returns the card's rank.
func (c Card) Rank() Rank {
	return Rank(int(c) / 4)
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit().IsRed()
}

// String renders the card as rank followed by suit symbol, e.g. "3♦".
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return c.Rank().String() + c.Suit().String()
}

// ID returns the decimal wire form of the card.
func (c Card) ID() string {
	return strconv.Itoa(int(c))
}

// Parse parses a decimal card identifier.
func Parse(s string) (Card, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid card %q: %w", s, err)
	}
	if n < 0 || n >= Size {
		return 0, fmt.Errorf("card %d out of range", n)
	}
	return Card(n), nil
}

// ParseAll parses a list of decimal card identifiers.
func ParseAll(fields []string) ([]Card, error) {
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// FormatIDs renders cards in their wire form.
func FormatIDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID()
	}
	return ids
}

// CardsToString converts a slice of cards to a space-separated string
func CardsToString(cards []Card) string {
	if len(cards) == 0 {
		return ""
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
