package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type slotRepo struct{ s *Store }

func (r *slotRepo) Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.slots {
		if existing.AreaID == slot.AreaID && existing.Label == slot.Label {
			return nil, fmt.Errorf("%w: slot label '%s'", repository.ErrDuplicateEntry, slot.Label)
		}
	}
	sl := *slot
	sl.ID = r.s.nextID("slots")
	sl.Revision = 1
	sl.CreatedAt = r.s.now()
	sl.UpdatedAt = sl.CreatedAt
	r.s.slots[sl.ID] = &sl
	out := sl
	return &out, nil
}

func (r *slotRepo) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *sl
	return &out, nil
}

func (r *slotRepo) FindByAreaID(ctx context.Context, areaID int) ([]domain.Slot, error) {
	return r.find(func(sl *domain.Slot) bool { return sl.AreaID == areaID }), nil
}

func (r *slotRepo) FindByAreaAndClass(ctx context.Context, areaID int, class domain.VehicleClass) ([]domain.Slot, error) {
	return r.find(func(sl *domain.Slot) bool { return sl.AreaID == areaID && sl.Class == class }), nil
}

// find returns matching slots ordered by label.
func (r *slotRepo) find(match func(*domain.Slot) bool) []domain.Slot {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Slot
	for _, sl := range r.s.slots {
		if match(sl) {
			out = append(out, *sl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func (r *slotRepo) UpdateIfRevision(ctx context.Context, slot *domain.Slot, expected int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.slots[slot.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Revision != expected {
		return repository.ErrRevisionConflict
	}
	sl := *slot
	sl.AreaID = cur.AreaID
	sl.Revision = expected + 1
	sl.CreatedAt = cur.CreatedAt
	sl.UpdatedAt = r.s.now()
	r.s.slots[sl.ID] = &sl
	slot.Revision = sl.Revision
	slot.UpdatedAt = sl.UpdatedAt
	return nil
}

func (r *slotRepo) DeleteIfRevision(ctx context.Context, id int, expected int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Revision != expected {
		return repository.ErrRevisionConflict
	}
	delete(r.s.slots, id)
	return nil
}
