package memory

import (
	"context"
	"sort"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type areaRepo struct{ s *Store }

func (r *areaRepo) Create(ctx context.Context, area *domain.Area) (*domain.Area, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := area.Clone()
	a.ID = r.s.nextID("areas")
	a.Revision = 1
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.areas[a.ID] = a
	return a.Clone(), nil
}

func (r *areaRepo) FindByID(ctx context.Context, id int) (*domain.Area, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.areas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *areaRepo) FindAll(ctx context.Context) ([]domain.Area, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Area, 0, len(r.s.areas))
	for _, a := range r.s.areas {
		out = append(out, *a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *areaRepo) UpdateIfRevision(ctx context.Context, area *domain.Area, expected int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.areas[area.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Revision != expected {
		return repository.ErrRevisionConflict
	}
	a := area.Clone()
	a.Revision = expected + 1
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = r.s.now()
	r.s.areas[a.ID] = a
	area.Revision = a.Revision
	area.UpdatedAt = a.UpdatedAt
	return nil
}

func (r *areaRepo) AssignGuard(ctx context.Context, areaID, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.areas[areaID]; !ok {
		return repository.ErrNotFound
	}
	if r.s.guards[userID] == nil {
		r.s.guards[userID] = make(map[int]bool)
	}
	if r.s.guards[userID][areaID] {
		return repository.ErrDuplicateEntry
	}
	r.s.guards[userID][areaID] = true
	return nil
}

func (r *areaRepo) GuardAreas(ctx context.Context, userID int) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []int
	for id := range r.s.guards[userID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
