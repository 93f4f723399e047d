package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
	"gopkg.in/guregu/null.v4"
)

type dueRepo struct{ s *Store }

func (r *dueRepo) Create(ctx context.Context, due *domain.OutstandingDue) (*domain.OutstandingDue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *due
	d.ID = r.s.nextID("dues")
	d.IsPaid = false
	d.PaidAt = null.Time{}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.s.now()
	}
	r.s.dues[d.ID] = &d
	out := d
	return &out, nil
}

func (r *dueRepo) FindByID(ctx context.Context, id int) (*domain.OutstandingDue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.dues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (r *dueRepo) FindUnpaidByUser(ctx context.Context, userID int) ([]domain.OutstandingDue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.OutstandingDue
	for _, d := range r.s.dues {
		if d.UserID == userID && !d.IsPaid {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *dueRepo) SumUnpaidByUser(ctx context.Context, userID int) (float64, error) {
	return r.sum(func(d *domain.OutstandingDue) bool { return d.UserID == userID }), nil
}

func (r *dueRepo) SumUnpaidByVehicle(ctx context.Context, vehicleID int) (float64, error) {
	return r.sum(func(d *domain.OutstandingDue) bool { return d.VehicleID == vehicleID }), nil
}

func (r *dueRepo) sum(match func(*domain.OutstandingDue) bool) float64 {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var total float64
	for _, d := range r.s.dues {
		if !d.IsPaid && match(d) {
			total += d.Amount
		}
	}
	return total
}

func (r *dueRepo) MarkPaid(ctx context.Context, id int, paidAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.dues[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if d.IsPaid {
		return false, nil
	}
	d.IsPaid = true
	d.PaidAt = null.TimeFrom(paidAt)
	return true, nil
}
