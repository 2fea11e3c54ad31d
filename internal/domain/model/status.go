package model

import "strings"

// Status is a normalized participation state.
type Status string

// Normalized participation states.
const (
	StatusActive     Status = "active"
	StatusProxy      Status = "proxy"
	StatusDefeated   Status = "defeated"
	StatusSpectating Status = "spectating"
	StatusPending    Status = "pending"
	StatusUnknown    Status = "unknown"
)

// Fixed vocabulary sets. Membership tests are case-insensitive; the lists
// include the localized spellings seen in production participant rows.
var (
	defeatedWords = map[string]struct{}{
		"defeated": {}, "lost": {}, "dead": {}, "eliminated": {},
		"retired": {}, "knocked_out": {}, "derrotado": {}, "besiegt": {},
	}
	spectatingWords = map[string]struct{}{
		"spectating": {}, "spectator": {}, "observer": {}, "watching": {},
	}
	proxyWords = map[string]struct{}{
		"proxy": {}, "stand-in": {}, "stand_in": {}, "standin": {},
		"ai": {}, "bot": {}, "cpu": {},
	}
	activeWords = map[string]struct{}{
		"active": {}, "alive": {}, "playing": {}, "in_battle": {}, "fighting": {},
	}
	pendingWords = map[string]struct{}{
		"pending": {}, "waiting": {}, "queued": {},
	}
)

// NormalizeStatus maps a free-form status string onto the fixed vocabulary.
// Unrecognized non-empty values pass through lowercased; blank input is unknown.
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusUnknown
	}
	switch {
	case contains(defeatedWords, s):
		return StatusDefeated
	case contains(spectatingWords, s):
		return StatusSpectating
	case contains(proxyWords, s):
		return StatusProxy
	case contains(activeWords, s):
		return StatusActive
	case contains(pendingWords, s):
		return StatusPending
	}
	return Status(s)
}

func contains(set map[string]struct{}, s string) bool {
	_, ok := set[s]
	return ok
}
