package models

import "fmt"

type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleSuper     Role = "SUPER"
	RoleAnonymous Role = "ANONYMOUS"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuper, RoleAnonymous:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Tier is the ranked ladder tier for one game mode. Rank ascends from IRON to
// CHALLENGER, so a larger rank always means a better tier.
type Tier string

const (
	TierIron        Tier = "IRON"
	TierBronze      Tier = "BRONZE"
	TierSilver      Tier = "SILVER"
	TierGold        Tier = "GOLD"
	TierPlatinum    Tier = "PLATINUM"
	TierEmerald     Tier = "EMERALD"
	TierDiamond     Tier = "DIAMOND"
	TierMaster      Tier = "MASTER"
	TierGrandmaster Tier = "GRANDMASTER"
	TierChallenger  Tier = "CHALLENGER"
)

var tierRanks = map[Tier]int{
	TierIron:        1,
	TierBronze:      2,
	TierSilver:      3,
	TierGold:        4,
	TierPlatinum:    5,
	TierEmerald:     6,
	TierDiamond:     7,
	TierMaster:      8,
	TierGrandmaster: 9,
	TierChallenger:  10,
}

// AllTiers lists every tier in ascending rank order.
var AllTiers = []Tier{
	TierIron, TierBronze, TierSilver, TierGold, TierPlatinum,
	TierEmerald, TierDiamond, TierMaster, TierGrandmaster, TierChallenger,
}

func (t Tier) Rank() int { return tierRanks[t] }

func ParseTier(s string) (Tier, error) {
	if _, ok := tierRanks[Tier(s)]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return Tier(s), nil
}

// GameMode selects which of the four tier columns a filter applies to.
type GameMode string

const (
	ModeLOL      GameMode = "LOL"
	ModeFlex     GameMode = "FLEX"
	ModeTFT      GameMode = "TFT"
	ModeDoubleUp GameMode = "DOUBLE_UP"
)

func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(s) {
	case ModeLOL, ModeFlex, ModeTFT, ModeDoubleUp:
		return GameMode(s), nil
	}
	return "", fmt.Errorf("unknown game mode %q", s)
}

// FilterMode compares a member's tier against the requested pivot tier.
// OVER keeps the same tier or better, UNDER the same tier or worse. UNDER is
// the default when the mode is absent.
type FilterMode string

const (
	FilterEqual FilterMode = "EQUAL"
	FilterOver  FilterMode = "OVER"
	FilterUnder FilterMode = "UNDER"
)

func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(s) {
	case FilterEqual, FilterOver, FilterUnder:
		return FilterMode(s), nil
	}
	return "", fmt.Errorf("unknown filter mode %q", s)
}

// Matching returns every tier selected by mode relative to the pivot.
func (m FilterMode) Matching(pivot Tier) []Tier {
	base := pivot.Rank()
	var out []Tier
	for _, t := range AllTiers {
		switch m {
		case FilterEqual:
			if t.Rank() == base {
				out = append(out, t)
			}
		case FilterOver:
			if t.Rank() >= base {
				out = append(out, t)
			}
		default: // UNDER and unset
			if t.Rank() <= base {
				out = append(out, t)
			}
		}
	}
	return out
}

// DateOption selects whether a date range filters on the creation or the last
// update timestamp.
type DateOption string

const (
	DateCreate DateOption = "CREATE"
	DateUpdate DateOption = "UPDATE"
)

func ParseDateOption(s string) (DateOption, error) {
	switch DateOption(s) {
	case DateCreate, DateUpdate:
		return DateOption(s), nil
	}
	return "", fmt.Errorf("unknown date option %q", s)
}
