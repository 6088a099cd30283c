// Package leaderboard contains the ranking read model of Rada.ke.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank is a 1-based position.
type Rank int

// IsValid checks that the rank is positive.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 reports whether the rank is in the top ten.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String renders the rank as #N.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// Scope selects the national board or one region.
type Scope struct {
	Region shared.Region
}

// National is the board across all regions.
var National = Scope{}

// IsRegional reports whether the scope is filtered to one region.
func (s Scope) IsRegional() bool {
	return s.Region != ""
}

// String names the scope.
func (s Scope) String() string {
	if s.Region == "" {
		return "national"
	}
	return string(s.Region)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one row of the board.
type Entry struct {
	Rank     Rank
	UserID   string
	Nickname string
	Emoji    string
	Region   shared.Region
	XP       int
	Level    int
}

// NewEntry builds an entry with its level derived from xp.
func NewEntry(rank Rank, userID, nickname, emoji string, region shared.Region, xp int) Entry {
	return Entry{
		Rank:     rank,
		UserID:   userID,
		Nickname: nickname,
		Emoji:    emoji,
		Region:   region,
		XP:       xp,
		Level:    int(user.CalculateLevel(user.XP(xp))),
	}
}

// AssignRanks sorts entries by XP descending, breaking ties by user id, and
// numbers them starting at offset+1.
func AssignRanks(entries []Entry, offset int) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = Rank(offset + i + 1)
	}
}
