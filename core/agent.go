package core

import (
	"strings"
	"time"
)

// Rank is the ordered authority level of an agent. Higher values carry more
// authority. The zero value is RankUnknown.
type Rank int

const (
	// RankUnknown is assigned to unparseable rank strings. It never carries permissions.
	RankUnknown Rank = iota
	// RankSpecialist is the lowest rank (SPC).
	RankSpecialist
	// RankOperative (OPR).
	RankOperative
	// RankLieutenant (LT).
	RankLieutenant
	// RankMajor (MAJ).
	RankMajor
	// RankCaptain (CPT).
	RankCaptain
	// RankCommander is the highest rank (CMDR).
	RankCommander
)

var rankNames = map[Rank][2]string{
	RankSpecialist: {"Specialist", "SPC"},
	RankOperative:  {"Operative", "OPR"},
	RankLieutenant: {"Lieutenant", "LT"},
	RankMajor:      {"Major", "MAJ"},
	RankCaptain:    {"Captain", "CPT"},
	RankCommander:  {"Commander", "CMDR"},
}

// Ranks returns all known ranks, highest first.
func Ranks() []Rank {
	return []Rank{RankCommander, RankCaptain, RankMajor, RankLieutenant, RankOperative, RankSpecialist}
}

// String returns the long rank name.
func (r Rank) String() string {
	if n, ok := rankNames[r]; ok {
		return n[0]
	}
	return "Unknown"
}

// Abbrev returns the short rank code (e.g. "CMDR").
func (r Rank) Abbrev() string {
	if n, ok := rankNames[r]; ok {
		return n[1]
	}
	return "UNK"
}

// Outranks reports whether r carries strictly more authority than other.
func (r Rank) Outranks(other Rank) bool { return r > other }

// ParseRank accepts long and short spellings case-insensitively. Unknown
// input yields RankUnknown.
func ParseRank(s string) Rank {
	s = strings.TrimSpace(s)
	for r, n := range rankNames {
		if strings.EqualFold(s, n[0]) || strings.EqualFold(s, n[1]) {
			return r
		}
	}
	return RankUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rank) UnmarshalText(b []byte) error {
	*r = ParseRank(string(b))
	return nil
}

// Agent statuses.
const (
	StatusActive      = "active"
	StatusStandby     = "standby"
	StatusMaintenance = "maintenance"
	StatusOffline     = "offline"
)

// Access tiers.
const (
	TierAlpha = "alpha"
	TierBeta  = "beta"
	TierGamma = "gamma"
	TierDelta = "delta"
)

// Agent is a ranked conversational entity. It is owned by operators and only
// mutated by an explicit authorized action or an operator edit.
type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Rank            Rank      `json:"rank"`
	Faction         string    `json:"faction"`
	Status          string    `json:"status"`
	AccessTier      string    `json:"access_tier"`
	PersonalityText string    `json:"personality_text"`
	ProjectID       string    `json:"project_id,omitempty"`
	VoiceProfile    string    `json:"voice_profile,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AgentPatch carries the fields an update may change. Nil fields are left
// untouched.
type AgentPatch struct {
	Name            *string
	Rank            *Rank
	Faction         *string
	Status          *string
	AccessTier      *string
	PersonalityText *string
	ProjectID       *string
	VoiceProfile    *string
}

// Empty reports whether the patch changes nothing.
func (p AgentPatch) Empty() bool {
	return p.Name == nil && p.Rank == nil && p.Faction == nil && p.Status == nil &&
		p.AccessTier == nil && p.PersonalityText == nil && p.ProjectID == nil && p.VoiceProfile == nil
}

// Apply returns a copy of a with the patch applied.
func (p AgentPatch) Apply(a Agent) Agent {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Rank != nil {
		a.Rank = *p.Rank
	}
	if p.Faction != nil {
		a.Faction = *p.Faction
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.AccessTier != nil {
		a.AccessTier = *p.AccessTier
	}
	if p.PersonalityText != nil {
		a.PersonalityText = *p.PersonalityText
	}
	if p.ProjectID != nil {
		a.ProjectID = *p.ProjectID
	}
	if p.VoiceProfile != nil {
		a.VoiceProfile = *p.VoiceProfile
	}
	return a
}
