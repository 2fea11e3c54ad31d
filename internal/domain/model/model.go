// Package model contains domain models passed between layers.
package model

// QueueEntry is one player's request to join a match, as read from the
// persistence boundary. The core treats it as an immutable value.
type QueueEntry struct {
	ID        string   `json:"id"`
	GameID    string   `json:"game_id"`
	Mode      string   `json:"mode"`
	OwnerID   string   `json:"owner_id"`
	HeroID    string   `json:"hero_id"`
	HeroIDs   []string `json:"hero_ids,omitempty"`
	Role      string   `json:"role"`
	Score     float64  `json:"score"`
	JoinedAt  string   `json:"joined_at"`
	UpdatedAt string   `json:"updated_at"`
	Status    string   `json:"status"`
}

// RoleSlot is the demand side of matching: one role and how many seats it needs.
type RoleSlot struct {
	Name      string `json:"name"`
	SlotCount int    `json:"slot_count"`
}

// Member is one seated participant inside an assignment slot.
// Entry carries the original queue row when the member was produced by
// matching; it is nil for members decoded from external assignment data.
type Member struct {
	OwnerID string      `json:"owner_id"`
	HeroID  string      `json:"hero_id"`
	Role    string      `json:"role,omitempty"`
	Score   float64     `json:"score,omitempty"`
	Entry   *QueueEntry `json:"entry,omitempty"`
}

// SlotResult is one resolved seat within an assignment.
type SlotResult struct {
	SlotID string `json:"slot_id,omitempty"`
	// SlotIndex is the seat position. The zero value reads as position 0,
	// so callers that never assigned a position must set -1 (a decoded
	// slot_index of 0 is taken at face value). Slots without a SlotID and
	// with a negative index are told apart by input order alone.
	SlotIndex int      `json:"slot_index"`
	Members   []Member `json:"members"`
}

// Group clusters slots that must stay together (e.g. premade parties).
type Group struct {
	Name        string `json:"name,omitempty"`
	SlotIndices []int  `json:"slot_indices"`
}

// RemovalReason tags why the sanitizer dropped a member.
type RemovalReason string

// Removal reasons recorded by the sanitizer.
const (
	RemovalDuplicateSlot       RemovalReason = "duplicate_slot"
	RemovalDuplicateSlotMember RemovalReason = "duplicate_slot_member"
	RemovalDuplicateOwner      RemovalReason = "duplicate_owner"
	RemovalDuplicateHero       RemovalReason = "duplicate_hero"
)

// RemovedMember is the audit record for a member dropped during sanitizing.
// Removed members are never silently discarded.
type RemovedMember struct {
	OwnerID   string        `json:"owner_id"`
	HeroID    string        `json:"hero_id"`
	Role      string        `json:"role"`
	SlotIndex int           `json:"slot_index"`
	Reason    RemovalReason `json:"reason"`
	SlotKey   string        `json:"slot_key"`
}

// Assignment is the resolved mapping of queue entries to the slots of one role.
// Members is always the flattened, deduplicated union of RoleSlots members.
type Assignment struct {
	Role           string          `json:"role"`
	SlotCount      int             `json:"slot_count"`
	RoleSlots      []SlotResult    `json:"role_slots"`
	Members        []Member        `json:"members"`
	Groups         []Group         `json:"groups,omitempty"`
	Ready          bool            `json:"ready"`
	FilledSlots    int             `json:"filled_slots"`
	MissingSlots   int             `json:"missing_slots"`
	RemovedMembers []RemovedMember `json:"removed_members,omitempty"`
}

// Participant is one row of a participant snapshot fed into the turn tracker.
// Status is free-form at this boundary and normalized by NormalizeStatus.
type Participant struct {
	OwnerID string `json:"owner_id"`
	Status  string `json:"status"`
}
