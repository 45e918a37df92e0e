package orchestrate

import (
	"strings"

	"stormlightlabs.org/mlbedge/internal/core"
)

// NameIndex resolves odds-provider outcome names (team or player full
// names) to internal ids. Built fresh per date from that date's
// schedule and lineups, since the odds feed's name vocabulary has no
// persisted mapping table of its own.
type NameIndex struct {
	players map[string]core.PlayerID
	teams   map[string]core.TeamID
}

func NewNameIndex() *NameIndex {
	return &NameIndex{players: make(map[string]core.PlayerID), teams: make(map[string]core.TeamID)}
}

func (n *NameIndex) AddPlayer(name string, id core.PlayerID) {
	if name == "" {
		return
	}
	n.players[normalizeName(name)] = id
}

func (n *NameIndex) AddTeam(name string, id core.TeamID) {
	if name == "" {
		return
	}
	n.teams[normalizeName(name)] = id
}

// Resolve matches an odds outcome name against the team index first
// (game-level markets name teams, never players), falling back to the
// player index. An empty id means the outcome could not be mapped and
// the caller should drop that row rather than guess.
func (n *NameIndex) Resolve(outcomeName string) (kind, id string) {
	key := normalizeName(outcomeName)
	if teamID, ok := n.teams[key]; ok {
		return "team", string(teamID)
	}
	if playerID, ok := n.players[key]; ok {
		return "player", string(playerID)
	}
	return "", ""
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
