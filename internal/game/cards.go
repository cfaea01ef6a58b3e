package game

import "math/rand"

type Suit int

type Rank int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	r := map[Rank]string{
		Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7", Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
	}[c.Rank]
	s := map[Suit]string{Spades: "s", Hearts: "h", Diamonds: "d", Clubs: "c"}[c.Suit]
	return r + s
}

// ParseCard inverts Card.String. Returns false on anything else.
func ParseCard(s string) (Card, bool) {
	if len(s) != 2 {
		return Card{}, false
	}
	ranks := map[byte]Rank{
		'2': Two, '3': Three, '4': Four, '5': Five, '6': Six, '7': Seven,
		'8': Eight, '9': Nine, 'T': Ten, 'J': Jack, 'Q': Queen, 'K': King, 'A': Ace,
	}
	suits := map[byte]Suit{'s': Spades, 'h': Hearts, 'd': Diamonds, 'c': Clubs}
	r, ok := ranks[s[0]]
	if !ok {
		return Card{}, false
	}
	su, ok := suits[s[1]]
	if !ok {
		return Card{}, false
	}
	return Card{Rank: r, Suit: su}, true
}

// Deck is a shuffled shoe consumed through a draw cursor. The shuffle is
// deterministic for a given seed; the cursor advances per draw, so a state
// that records its deck never reshuffles to recover position.
type Deck struct {
	Cards []Card
	Next  int
}

// NewDeck builds and shuffles decks copies of a 52-card deck.
func NewDeck(decks int, seed int64) *Deck {
	if decks < 1 {
		decks = 1
	}
	cards := make([]Card, 0, decks*52)
	for d := 0; d < decks; d++ {
		for s := Spades; s <= Clubs; s++ {
			for r := Two; r <= Ace; r++ {
				cards = append(cards, Card{Rank: r, Suit: s})
			}
		}
	}
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{Cards: cards}
}

func (d *Deck) Draw() (Card, bool) {
	if d.Next >= len(d.Cards) {
		return Card{}, false
	}
	c := d.Cards[d.Next]
	d.Next++
	return c, true
}

func (d *Deck) Remaining() int {
	return len(d.Cards) - d.Next
}
