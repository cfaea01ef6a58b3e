package holdem

import (
	"sort"

	"cardroom/internal/game"
)

type HandRank struct {
	Category int
	Ranks    []int
}

func (h HandRank) BetterThan(o HandRank) bool {
	if h.Category != o.Category {
		return h.Category > o.Category
	}
	for i := 0; i < len(h.Ranks) && i < len(o.Ranks); i++ {
		if h.Ranks[i] != o.Ranks[i] {
			return h.Ranks[i] > o.Ranks[i]
		}
	}
	return false
}

func (h HandRank) Equal(o HandRank) bool {
	return !h.BetterThan(o) && !o.BetterThan(h)
}

// BestOf picks the best 5-card combination from 5..7 cards.
func BestOf(cards []game.Card) HandRank {
	n := len(cards)
	best := HandRank{Category: -1}
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						h := eval5(cards[a], cards[b], cards[c], cards[d], cards[e])
						if h.BetterThan(best) {
							best = h
						}
					}
				}
			}
		}
	}
	return best
}

// Category ranking: 8 Straight Flush, 7 Four, 6 Full House, 5 Flush, 4 Straight, 3 Trips, 2 Two Pair, 1 Pair, 0 High Card
func eval5(c1, c2, c3, c4, c5 game.Card) HandRank {
	cards := []game.Card{c1, c2, c3, c4, c5}
	counts := map[int]int{}
	suits := map[game.Suit]int{}
	ranks := make([]int, 0, 5)
	for _, c := range cards {
		r := int(c.Rank)
		counts[r]++
		suits[c.Suit]++
		ranks = append(ranks, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	isFlush := false
	for _, v := range suits {
		if v == 5 {
			isFlush = true
			break
		}
	}
	isStraight, highStraight := straightHigh(ranks)
	if isFlush && isStraight {
		return HandRank{Category: 8, Ranks: []int{highStraight}}
	}

	type rc struct {
		rank  int
		count int
	}
	groups := make([]rc, 0, len(counts))
	for r, c := range counts {
		groups = append(groups, rc{rank: r, count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return HandRank{Category: 7, Ranks: []int{groups[0].rank, groups[1].rank}}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: 6, Ranks: []int{groups[0].rank, groups[1].rank}}
	case isFlush:
		return HandRank{Category: 5, Ranks: ranks}
	case isStraight:
		return HandRank{Category: 4, Ranks: []int{highStraight}}
	case groups[0].count == 3:
		return HandRank{Category: 3, Ranks: []int{groups[0].rank, groups[1].rank, groups[2].rank}}
	case groups[0].count == 2 && groups[1].count == 2:
		// Higher pair, lower pair, kicker.
		return HandRank{Category: 2, Ranks: []int{groups[0].rank, groups[1].rank, groups[2].rank}}
	case groups[0].count == 2:
		return HandRank{Category: 1, Ranks: []int{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}}
	default:
		return HandRank{Category: 0, Ranks: ranks}
	}
}

// straightHigh expects ranks sorted descending.
func straightHigh(ranks []int) (bool, int) {
	uniq := ranks[:0:0]
	seen := map[int]bool{}
	for _, r := range ranks {
		if !seen[r] {
			seen[r] = true
			uniq = append(uniq, r)
		}
	}
	if len(uniq) < 5 {
		return false, 0
	}
	if uniq[0]-uniq[4] == 4 {
		return true, uniq[0]
	}
	// Wheel: A-5-4-3-2.
	if uniq[0] == int(game.Ace) && uniq[1] == 5 && uniq[4] == 2 {
		return true, 5
	}
	return false, 0
}
