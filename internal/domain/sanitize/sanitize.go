// Package sanitize repairs malformed or duplicated assignment data. The
// reducer is pure and idempotent: sanitizing an already-clean result is a
// no-op, and every dropped member leaves an audit record.
package sanitize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	model "github.com/musterhq/muster/internal/domain/model"
)

// Sanitize removes duplicate slots, duplicate in-slot members, and repeated
// owners/heroes, walking assignments, slots, then members in order so the
// first occurrence always wins. Owner and hero uniqueness holds across the
// whole result set, not per assignment: an owner seated under "tank" is
// removed again under "dps". Members, filled and missing slot counts are
// recomputed; removal records append to any pre-existing ones.
func Sanitize(assignments []model.Assignment) []model.Assignment {
	seenOwners := make(map[string]struct{})
	seenHeroes := make(map[string]struct{})
	out := make([]model.Assignment, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, sanitizeAssignment(a, seenOwners, seenHeroes))
	}
	return out
}

// Room is the slots+members shape used by drop-in lobbies. SanitizeRoom
// applies the assignment reducer to it by wrapping it as a synthetic
// single assignment.
type Room struct {
	Name           string                `json:"name,omitempty"`
	Slots          []model.SlotResult    `json:"slots"`
	Members        []model.Member        `json:"members"`
	Groups         []model.Group         `json:"groups,omitempty"`
	RemovedMembers []model.RemovedMember `json:"removed_members,omitempty"`
}

// SanitizeRoom runs the assignment reducer over a room shape.
func SanitizeRoom(room Room) Room {
	a := sanitizeAssignment(model.Assignment{
		Role:           room.Name,
		RoleSlots:      room.Slots,
		Groups:         room.Groups,
		RemovedMembers: room.RemovedMembers,
	}, make(map[string]struct{}), make(map[string]struct{}))
	return Room{
		Name:           room.Name,
		Slots:          a.RoleSlots,
		Members:        a.Members,
		Groups:         a.Groups,
		RemovedMembers: a.RemovedMembers,
	}
}

// FlattenMembers returns the globally deduplicated member list across all
// assignments. A member is skipped when its owner or hero id already
// appeared in an earlier assignment's members.
func FlattenMembers(assignments []model.Assignment) []model.Member {
	seenOwners := make(map[string]struct{})
	seenHeroes := make(map[string]struct{})
	var out []model.Member
	for _, a := range assignments {
		for _, m := range a.Members {
			if m.OwnerID != "" {
				if _, dup := seenOwners[m.OwnerID]; dup {
					continue
				}
			}
			if m.HeroID != "" {
				if _, dup := seenHeroes[m.HeroID]; dup {
					continue
				}
			}
			if m.OwnerID != "" {
				seenOwners[m.OwnerID] = struct{}{}
			}
			if m.HeroID != "" {
				seenHeroes[m.HeroID] = struct{}{}
			}
			out = append(out, m)
		}
	}
	return out
}

// sanitizeAssignment reduces one assignment. The owner and hero sets are
// shared across a result set so cross-assignment repeats are caught too.
func sanitizeAssignment(a model.Assignment, seenOwners, seenHeroes map[string]struct{}) model.Assignment {
	seenSlotKeys := make(map[string]struct{})

	removed := append([]model.RemovedMember(nil), a.RemovedMembers...)
	outSlots := make([]model.SlotResult, 0, len(a.RoleSlots))
	var members []model.Member

	for ordinal, slot := range a.RoleSlots {
		key := slotKey(slot, ordinal)
		if _, dup := seenSlotKeys[key]; dup {
			for _, m := range slot.Members {
				removed = append(removed, removal(m, a.Role, slot.SlotIndex, model.RemovalDuplicateSlot, key))
			}
			continue
		}
		seenSlotKeys[key] = struct{}{}

		seenInSlot := make(map[string]struct{})
		kept := make([]model.Member, 0, len(slot.Members))
		for i, m := range slot.Members {
			mk := memberKey(m, i)
			if _, dup := seenInSlot[mk]; dup {
				removed = append(removed, removal(m, a.Role, slot.SlotIndex, model.RemovalDuplicateSlotMember, key))
				continue
			}
			seenInSlot[mk] = struct{}{}

			if m.OwnerID != "" {
				if _, dup := seenOwners[m.OwnerID]; dup {
					removed = append(removed, removal(m, a.Role, slot.SlotIndex, model.RemovalDuplicateOwner, key))
					continue
				}
			}
			if m.HeroID != "" {
				if _, dup := seenHeroes[m.HeroID]; dup {
					removed = append(removed, removal(m, a.Role, slot.SlotIndex, model.RemovalDuplicateHero, key))
					continue
				}
			}
			if m.OwnerID != "" {
				seenOwners[m.OwnerID] = struct{}{}
			}
			if m.HeroID != "" {
				seenHeroes[m.HeroID] = struct{}{}
			}
			kept = append(kept, m)
		}

		slot.Members = kept
		outSlots = append(outSlots, slot)
		members = append(members, kept...)
	}

	filled := 0
	for _, s := range outSlots {
		if len(s.Members) > 0 {
			filled++
		}
	}

	a.RoleSlots = outSlots
	a.Members = members
	a.FilledSlots = filled
	a.MissingSlots = len(outSlots) - filled
	a.RemovedMembers = removed
	a.Groups = dedupeGroups(a.Groups)
	return a
}

// slotKey identifies a slot: explicit slot id, then the slot index when it
// is non-negative, then the walk ordinal. A negative index is the caller's
// way of saying no position was assigned (see model.SlotResult.SlotIndex),
// so such slots never collide with each other.
func slotKey(slot model.SlotResult, ordinal int) string {
	if slot.SlotID != "" {
		return slot.SlotID
	}
	if slot.SlotIndex >= 0 {
		return "slot:" + strconv.Itoa(slot.SlotIndex)
	}
	return "index:" + strconv.Itoa(ordinal)
}

// memberKey identifies a member within one slot.
func memberKey(m model.Member, position int) string {
	if m.OwnerID != "" {
		return "owner:" + m.OwnerID
	}
	if m.HeroID != "" {
		return "hero:" + m.HeroID
	}
	return "pos:" + strconv.Itoa(position)
}

func removal(m model.Member, role string, slotIndex int, reason model.RemovalReason, key string) model.RemovedMember {
	return model.RemovedMember{
		OwnerID:   m.OwnerID,
		HeroID:    m.HeroID,
		Role:      role,
		SlotIndex: slotIndex,
		Reason:    reason,
		SlotKey:   key,
	}
}

// dedupeGroups drops groups whose slot index set repeats an earlier group's.
func dedupeGroups(groups []model.Group) []model.Group {
	if len(groups) == 0 {
		return groups
	}
	seen := make(map[string]struct{})
	out := make([]model.Group, 0, len(groups))
	for _, g := range groups {
		indices := append([]int(nil), g.SlotIndices...)
		sort.Ints(indices)
		parts := make([]string, len(indices))
		for i, n := range indices {
			parts[i] = strconv.Itoa(n)
		}
		key := fmt.Sprintf("[%s]", strings.Join(parts, ","))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}
