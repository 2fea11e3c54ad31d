package matching

import (
	"context"
	"sort"
	"strings"
	"time"

	model "github.com/musterhq/muster/internal/domain/model"
)

// ExactFitOption applies a configuration option to the ExactFit strategy.
type ExactFitOption func(*ExactFit)

// WithExactFitClock overrides the clock used to default unparseable join times.
func WithExactFitClock(now func() time.Time) ExactFitOption {
	return func(s *ExactFit) {
		if now != nil {
			s.now = now
		}
	}
}

// ExactFit seats the longest-waiting candidate per role slot while enforcing
// owner and hero uniqueness across the whole result set: a queue row whose
// owner or hero is already seated in any role is skipped. It is the safe
// fallback strategy and fully deterministic: ties on join time keep input
// order.
type ExactFit struct {
	now func() time.Time
}

// NewExactFit creates the exact-fit strategy.
func NewExactFit(opts ...ExactFitOption) *ExactFit {
	s := &ExactFit{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// candidate is a normalized queue row retained for seating.
type candidate struct {
	entry    model.QueueEntry
	role     string
	ownerID  string
	heroID   string
	joinedMS int64
	order    int // original input position, the tie-break on join time
}

// Match implements Strategy.
func (s *ExactFit) Match(_ context.Context, roles []model.RoleSlot, queue []model.QueueEntry) Result {
	demand := normalizeRoles(roles)

	totalSlots := 0
	for _, r := range demand {
		totalSlots += r.SlotCount
	}
	if totalSlots == 0 {
		return failure(ErrorNoActiveSlots)
	}

	candidates := s.normalizeQueue(queue)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].joinedMS < candidates[j].joinedMS
	})

	byRole := make(map[string][]candidate)
	for _, c := range candidates {
		byRole[c.role] = append(byRole[c.role], c)
	}

	usedOwnerIDs := make(map[string]struct{})
	usedHeroIDs := make(map[string]struct{})
	assignments := make([]model.Assignment, 0, len(demand))
	ready := true

	for _, role := range demand {
		accepted := make([]model.Member, 0, role.SlotCount)
		for _, c := range byRole[role.Name] {
			if len(accepted) >= role.SlotCount {
				break
			}
			if c.ownerID != "" {
				if _, taken := usedOwnerIDs[c.ownerID]; taken {
					continue
				}
			}
			if c.heroID != "" {
				if _, taken := usedHeroIDs[c.heroID]; taken {
					continue
				}
			}
			if c.ownerID != "" {
				usedOwnerIDs[c.ownerID] = struct{}{}
			}
			if c.heroID != "" {
				usedHeroIDs[c.heroID] = struct{}{}
			}
			entry := c.entry
			accepted = append(accepted, model.Member{
				OwnerID: c.ownerID,
				HeroID:  c.heroID,
				Role:    role.Name,
				Score:   entry.Score,
				Entry:   &entry,
			})
		}

		slots := make([]model.SlotResult, len(accepted))
		for i, m := range accepted {
			slots[i] = model.SlotResult{SlotIndex: i, Members: []model.Member{m}}
		}

		roleReady := len(accepted) >= role.SlotCount
		if !roleReady {
			ready = false
		}
		missing := role.SlotCount - len(accepted)
		if missing < 0 {
			missing = 0
		}
		assignments = append(assignments, model.Assignment{
			Role:         role.Name,
			SlotCount:    role.SlotCount,
			RoleSlots:    slots,
			Members:      accepted,
			Ready:        roleReady,
			FilledSlots:  len(accepted),
			MissingSlots: missing,
		})
	}

	return Result{Ready: ready, Assignments: assignments, TotalSlots: totalSlots}
}

// normalizeRoles keeps roles with a non-empty trimmed name and a positive
// slot count, preserving input order.
func normalizeRoles(roles []model.RoleSlot) []model.RoleSlot {
	out := make([]model.RoleSlot, 0, len(roles))
	for _, r := range roles {
		name := strings.TrimSpace(r.Name)
		if name == "" || r.SlotCount <= 0 {
			continue
		}
		out = append(out, model.RoleSlot{Name: name, SlotCount: r.SlotCount})
	}
	return out
}

// normalizeQueue keeps rows with a non-empty id and role, resolves the hero
// id (falling back to the first of hero_ids), and parses the join time,
// defaulting to now when unparseable.
func (s *ExactFit) normalizeQueue(queue []model.QueueEntry) []candidate {
	nowMS := s.now().UnixMilli()
	out := make([]candidate, 0, len(queue))
	for i, e := range queue {
		if strings.TrimSpace(e.ID) == "" {
			continue
		}
		role := strings.TrimSpace(e.Role)
		if role == "" {
			continue
		}
		heroID := strings.TrimSpace(e.HeroID)
		if heroID == "" && len(e.HeroIDs) > 0 {
			heroID = strings.TrimSpace(e.HeroIDs[0])
		}
		joined, ok := model.ParseTimestamp(e.JoinedAt)
		if !ok {
			joined = nowMS
		}
		out = append(out, candidate{
			entry:    e,
			role:     role,
			ownerID:  strings.TrimSpace(e.OwnerID),
			heroID:   heroID,
			joinedMS: joined,
			order:    i,
		})
	}
	return out
}
