package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type vehicleRepo struct{ s *Store }

func (r *vehicleRepo) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.Plate == vehicle.Plate {
			return nil, fmt.Errorf("%w: plate '%s'", repository.ErrDuplicateEntry, vehicle.Plate)
		}
	}
	v := *vehicle
	v.ID = r.s.nextID("vehicles")
	v.CreatedAt = r.s.now()
	r.s.vehicles[v.ID] = &v
	out := v
	return &out, nil
}

func (r *vehicleRepo) FindByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (r *vehicleRepo) FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.vehicles {
		if v.Plate == plate {
			out := *v
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *vehicleRepo) FindByUser(ctx context.Context, userID int) ([]domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Vehicle
	for _, v := range r.s.vehicles {
		if v.CreatedBy == userID || r.s.access[v.ID][userID] {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *vehicleRepo) GrantAccess(ctx context.Context, vehicleID, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vehicles[vehicleID]; !ok {
		return repository.ErrNotFound
	}
	if r.s.access[vehicleID] == nil {
		r.s.access[vehicleID] = make(map[int]bool)
	}
	r.s.access[vehicleID][userID] = true
	return nil
}

func (r *vehicleRepo) HasAccess(ctx context.Context, vehicleID, userID int) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[vehicleID]
	if !ok {
		return false, repository.ErrNotFound
	}
	return v.CreatedBy == userID || r.s.access[vehicleID][userID], nil
}
