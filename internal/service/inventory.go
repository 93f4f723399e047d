package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

// SlotInventory allocates slots and resizes areas. Every slot and area write
// goes through a revision check; the area's occupancy and demand index are
// changed in the same write.
type SlotInventory struct {
	areas    repository.AreaRepository
	slots    repository.SlotRepository
	pricing  *PricingEngine
	notifier Notifier
	policy   Policy

	// structural changes (resize, operator status changes) of one area are
	// serialised; reservations never wait on this lock.
	locksMu   sync.Mutex
	areaLocks map[int]*sync.Mutex
}

func NewSlotInventory(areas repository.AreaRepository, slots repository.SlotRepository, pricing *PricingEngine, notifier Notifier, policy Policy) *SlotInventory {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SlotInventory{
		areas:     areas,
		slots:     slots,
		pricing:   pricing,
		notifier:  notifier,
		policy:    policy,
		areaLocks: make(map[int]*sync.Mutex),
	}
}

func (inv *SlotInventory) lockArea(areaID int) func() {
	inv.locksMu.Lock()
	m, ok := inv.areaLocks[areaID]
	if !ok {
		m = &sync.Mutex{}
		inv.areaLocks[areaID] = m
	}
	inv.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Reserve picks the AVAILABLE slot with the lowest label, marks it RESERVED
// and counts it against the area. A lost compare-and-swap moves on to the
// next candidate. If ctx is cancelled before Reserve returns, the slot is
// released again.
func (inv *SlotInventory) Reserve(ctx context.Context, areaID int, class domain.VehicleClass) (*domain.Slot, error) {
	if !class.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown vehicle class %q", class))
	}
	if _, err := inv.areas.FindByID(ctx, areaID); err != nil {
		return nil, lookupErr("SlotInventory.Reserve", "area", err)
	}

	var won *domain.Slot
	err := retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		slots, err := inv.slots.FindByAreaAndClass(ctx, areaID, class)
		if err != nil {
			return wrapErr("SlotInventory.Reserve", err)
		}
		candidates := 0
		for i := range slots {
			if slots[i].Status != domain.SlotAvailable {
				continue
			}
			candidates++
			sl := slots[i]
			sl.Status = domain.SlotReserved
			err := inv.slots.UpdateIfRevision(ctx, &sl, slots[i].Revision)
			if errors.Is(err, repository.ErrRevisionConflict) {
				continue
			}
			if err != nil {
				return wrapErr("SlotInventory.Reserve", err)
			}
			won = &sl
			return nil
		}
		if candidates == 0 {
			return domain.ErrNoAvailableSlot
		}
		return repository.ErrRevisionConflict
	})
	if err != nil {
		return nil, err
	}

	if err := inv.adjustOccupancy(ctx, areaID, class, +1); err != nil {
		logCompensation("SlotInventory.Reserve", inv.revertSlot(detached(ctx), won, domain.SlotAvailable))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		logCompensation("SlotInventory.Reserve", inv.Release(detached(ctx), won.ID))
		return nil, err
	}
	return won, nil
}

// Release frees a held slot. Releasing a slot that is not held is a no-op.
func (inv *SlotInventory) Release(ctx context.Context, slotID int) error {
	var released *domain.Slot
	var prevStatus domain.SlotStatus
	err := retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		sl, err := inv.slots.FindByID(ctx, slotID)
		if err != nil {
			return lookupErr("SlotInventory.Release", "slot", err)
		}
		if !sl.Status.Held() {
			released = nil
			return nil
		}
		prevStatus = sl.Status
		sl.Status = domain.SlotAvailable
		if err := inv.slots.UpdateIfRevision(ctx, sl, sl.Revision); err != nil {
			return err
		}
		released = sl
		return nil
	})
	if err != nil {
		return err
	}
	if released == nil {
		log.Printf("SlotInventory.Release: slot %d was not held, nothing to release", slotID)
		return nil
	}
	if err := inv.adjustOccupancy(ctx, released.AreaID, released.Class, -1); err != nil {
		logCompensation("SlotInventory.Release", inv.revertSlot(detached(ctx), released, prevStatus))
		return err
	}
	return nil
}

// MarkOccupied moves a RESERVED slot to OCCUPIED. Occupancy is unchanged
// because a reserved slot is already counted.
func (inv *SlotInventory) MarkOccupied(ctx context.Context, slotID int) error {
	return retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		sl, err := inv.slots.FindByID(ctx, slotID)
		if err != nil {
			return lookupErr("SlotInventory.MarkOccupied", "slot", err)
		}
		switch sl.Status {
		case domain.SlotOccupied:
			return nil
		case domain.SlotReserved:
		default:
			return domain.NewValidationError(fmt.Sprintf("slot %s is %s, not reserved", sl.Label, sl.Status))
		}
		sl.Status = domain.SlotOccupied
		return inv.slots.UpdateIfRevision(ctx, sl, sl.Revision)
	})
}

// Hold takes one specific AVAILABLE slot back into the given held status.
// It undoes a Release when a later step of a transition fails.
func (inv *SlotInventory) Hold(ctx context.Context, slotID int, status domain.SlotStatus) error {
	if !status.Held() {
		return domain.NewValidationError("hold status must be RESERVED or OCCUPIED")
	}
	var held *domain.Slot
	err := retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		sl, err := inv.slots.FindByID(ctx, slotID)
		if err != nil {
			return lookupErr("SlotInventory.Hold", "slot", err)
		}
		if sl.Status != domain.SlotAvailable {
			return domain.ErrNoAvailableSlot
		}
		sl.Status = status
		if err := inv.slots.UpdateIfRevision(ctx, sl, sl.Revision); err != nil {
			return err
		}
		held = sl
		return nil
	})
	if err != nil {
		return err
	}
	if err := inv.adjustOccupancy(ctx, held.AreaID, held.Class, +1); err != nil {
		logCompensation("SlotInventory.Hold", inv.revertSlot(detached(ctx), held, domain.SlotAvailable))
		return err
	}
	return nil
}

// SetSlotStatus is the operator switch between AVAILABLE and MAINTENANCE.
// Slots held by a booking cannot be touched.
func (inv *SlotInventory) SetSlotStatus(ctx context.Context, slotID int, status domain.SlotStatus) (*domain.Slot, error) {
	if status != domain.SlotAvailable && status != domain.SlotMaintenance {
		return nil, domain.NewValidationError("operators may only set AVAILABLE or MAINTENANCE")
	}
	sl, err := inv.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, lookupErr("SlotInventory.SetSlotStatus", "slot", err)
	}
	unlock := inv.lockArea(sl.AreaID)
	defer unlock()

	var out *domain.Slot
	err = retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		cur, err := inv.slots.FindByID(ctx, slotID)
		if err != nil {
			return lookupErr("SlotInventory.SetSlotStatus", "slot", err)
		}
		if cur.Status.Held() {
			return domain.NewValidationError(fmt.Sprintf("slot %s is held by a booking", cur.Label))
		}
		if cur.Status == status {
			out = cur
			return nil
		}
		cur.Status = status
		if err := inv.slots.UpdateIfRevision(ctx, cur, cur.Revision); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.publishAvailability(ctx, out.AreaID, out.Class)
	return out, nil
}

// Resize grows or shrinks the number of slots of one class. New slots start
// in MAINTENANCE. Shrinking removes only AVAILABLE or MAINTENANCE slots,
// highest sequence first. The capacity field is written last.
func (inv *SlotInventory) Resize(ctx context.Context, areaID int, class domain.VehicleClass, newCapacity int) (*domain.Area, error) {
	if !class.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown vehicle class %q", class))
	}
	if newCapacity < 0 {
		return nil, domain.NewValidationError("capacity cannot be negative")
	}
	unlock := inv.lockArea(areaID)
	defer unlock()

	area, err := inv.areas.FindByID(ctx, areaID)
	if err != nil {
		return nil, lookupErr("SlotInventory.Resize", "area", err)
	}
	oldCapacity := area.Capacity.Get(class)
	switch {
	case newCapacity > oldCapacity:
		created, err := inv.createSlots(ctx, area, class, newCapacity-oldCapacity)
		if err != nil {
			return nil, err
		}
		updated, err := inv.setCapacity(ctx, areaID, class, newCapacity)
		if err != nil {
			for _, sl := range created {
				logCompensation("SlotInventory.Resize", inv.slots.DeleteIfRevision(detached(ctx), sl.ID, sl.Revision))
			}
			return nil, err
		}
		log.Printf("SlotInventory.Resize: area %d %s grew %d -> %d", areaID, class, oldCapacity, newCapacity)
		return updated, nil
	case newCapacity < oldCapacity:
		removed, err := inv.removeSlots(ctx, areaID, class, oldCapacity-newCapacity)
		if err != nil {
			return nil, err
		}
		updated, err := inv.setCapacity(ctx, areaID, class, newCapacity)
		if err != nil {
			// Restored slots get fresh ids; bookings keep their slot id without a reference.
			for _, sl := range removed {
				restore := sl
				_, cerr := inv.slots.Create(detached(ctx), &restore)
				logCompensation("SlotInventory.Resize", cerr)
			}
			return nil, err
		}
		log.Printf("SlotInventory.Resize: area %d %s shrank %d -> %d", areaID, class, oldCapacity, newCapacity)
		return updated, nil
	default:
		return area, nil
	}
}

func (inv *SlotInventory) createSlots(ctx context.Context, area *domain.Area, class domain.VehicleClass, count int) ([]domain.Slot, error) {
	existing, err := inv.slots.FindByAreaAndClass(ctx, area.ID, class)
	if err != nil {
		return nil, wrapErr("SlotInventory.createSlots", err)
	}
	maxSeq := 0
	for _, sl := range existing {
		if seq := domain.LabelSequence(sl.Label); seq > maxSeq {
			maxSeq = seq
		}
	}
	rate := area.BaseRates.Get(class)
	if rate <= 0 {
		rate = domain.DefaultBaseRate
	}

	created := make([]domain.Slot, 0, count)
	for i := 1; i <= count; i++ {
		sl, err := inv.slots.Create(ctx, &domain.Slot{
			AreaID:         area.ID,
			Class:          class,
			Label:          domain.SlotLabel(class, area.Floor, maxSeq+i),
			Status:         domain.SlotMaintenance,
			BaseHourlyRate: rate,
		})
		if err != nil {
			for _, c := range created {
				logCompensation("SlotInventory.createSlots", inv.slots.DeleteIfRevision(detached(ctx), c.ID, c.Revision))
			}
			return nil, wrapErr("SlotInventory.createSlots", err)
		}
		created = append(created, *sl)
	}
	return created, nil
}

// removeSlots first fences the chosen slots (a revision-checked write to
// MAINTENANCE) so a concurrent reservation either wins before the fence or
// cannot see the slot, then deletes them.
func (inv *SlotInventory) removeSlots(ctx context.Context, areaID int, class domain.VehicleClass, count int) ([]domain.Slot, error) {
	var removed []domain.Slot
	err := retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		slots, err := inv.slots.FindByAreaAndClass(ctx, areaID, class)
		if err != nil {
			return wrapErr("SlotInventory.removeSlots", err)
		}
		var removable []domain.Slot
		for _, sl := range slots {
			if sl.Status == domain.SlotAvailable || sl.Status == domain.SlotMaintenance {
				removable = append(removable, sl)
			}
		}
		if len(removable) < count {
			return &domain.InsufficientRemovableSlotsError{Requested: count, Removable: len(removable)}
		}
		sort.SliceStable(removable, func(i, j int) bool {
			si, sj := domain.LabelSequence(removable[i].Label), domain.LabelSequence(removable[j].Label)
			if si != sj {
				return si > sj
			}
			return removable[i].Label > removable[j].Label
		})
		chosen := removable[:count]

		type fence struct {
			original domain.Slot
			fenced   domain.Slot
		}
		fences := make([]fence, 0, count)
		undo := func() {
			for _, f := range fences {
				back := f.fenced
				back.Status = f.original.Status
				logCompensation("SlotInventory.removeSlots", inv.slots.UpdateIfRevision(detached(ctx), &back, f.fenced.Revision))
			}
		}
		for _, sl := range chosen {
			fenced := sl
			fenced.Status = domain.SlotMaintenance
			if err := inv.slots.UpdateIfRevision(ctx, &fenced, sl.Revision); err != nil {
				undo()
				return err
			}
			fences = append(fences, fence{original: sl, fenced: fenced})
		}
		removed = removed[:0]
		for i, f := range fences {
			if err := inv.slots.DeleteIfRevision(ctx, f.fenced.ID, f.fenced.Revision); err != nil {
				// Recreated under a new id, like the shrink rollback in Resize.
				for _, done := range removed {
					restore := done
					_, cerr := inv.slots.Create(detached(ctx), &restore)
					logCompensation("SlotInventory.removeSlots", cerr)
				}
				fences = fences[i:]
				undo()
				return err
			}
			removed = append(removed, f.original)
		}
		return nil
	})
	return removed, err
}

func (inv *SlotInventory) setCapacity(ctx context.Context, areaID int, class domain.VehicleClass, capacity int) (*domain.Area, error) {
	var out *domain.Area
	err := retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		area, err := inv.areas.FindByID(ctx, areaID)
		if err != nil {
			return lookupErr("SlotInventory.setCapacity", "area", err)
		}
		if area.Occupancy.Get(class) > capacity {
			return domain.NewValidationError("capacity cannot drop below current occupancy")
		}
		area.Capacity.Set(class, capacity)
		inv.pricing.reprice(area, class)
		if err := inv.areas.UpdateIfRevision(ctx, area, area.Revision); err != nil {
			return err
		}
		out = area
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.publishAvailability(ctx, areaID, class)
	return out, nil
}

// adjustOccupancy applies delta to the class counter and re-derives the
// demand index in the same write.
func (inv *SlotInventory) adjustOccupancy(ctx context.Context, areaID int, class domain.VehicleClass, delta int) error {
	err := retryOnConflict(ctx, inv.policy.MaxRetries, func() error {
		area, err := inv.areas.FindByID(ctx, areaID)
		if err != nil {
			return lookupErr("SlotInventory.adjustOccupancy", "area", err)
		}
		occ := area.Occupancy.Get(class) + delta
		if occ > area.Capacity.Get(class) {
			return domain.ErrNoAvailableSlot
		}
		if occ < 0 {
			log.Printf("SlotInventory.adjustOccupancy: area %d %s occupancy would go negative, clamping", areaID, class)
			occ = 0
		}
		area.Occupancy.Set(class, occ)
		inv.pricing.reprice(area, class)
		return inv.areas.UpdateIfRevision(ctx, area, area.Revision)
	})
	if err != nil {
		return err
	}
	inv.publishAvailability(ctx, areaID, class)
	return nil
}

func (inv *SlotInventory) revertSlot(ctx context.Context, sl *domain.Slot, status domain.SlotStatus) error {
	back := *sl
	back.Status = status
	return inv.slots.UpdateIfRevision(ctx, &back, sl.Revision)
}

func (inv *SlotInventory) publishAvailability(ctx context.Context, areaID int, class domain.VehicleClass) {
	area, err := inv.areas.FindByID(ctx, areaID)
	if err != nil {
		log.Printf("SlotInventory.publishAvailability: %v", err)
		return
	}
	inv.notifier.Publish(ctx, domain.TopicSlotAvailability, domain.AvailabilityEvent{
		AreaID:     areaID,
		Class:      class,
		Capacity:   area.Capacity.Get(class),
		Occupancy:  area.Occupancy.Get(class),
		Multiplier: multiplierFor(area, class),
	})
}

// Availability is the read projection of one area.
func (inv *SlotInventory) Availability(ctx context.Context, areaID int) (*domain.AreaAvailability, error) {
	area, err := inv.areas.FindByID(ctx, areaID)
	if err != nil {
		return nil, lookupErr("SlotInventory.Availability", "area", err)
	}
	slots, err := inv.slots.FindByAreaID(ctx, areaID)
	if err != nil {
		return nil, wrapErr("SlotInventory.Availability", err)
	}
	byClass := make(map[domain.VehicleClass]*domain.ClassAvailability, len(domain.VehicleClasses))
	out := &domain.AreaAvailability{AreaID: area.ID, Name: area.Name}
	for _, class := range domain.VehicleClasses {
		m := multiplierFor(area, class)
		byClass[class] = &domain.ClassAvailability{
			Class:      class,
			Capacity:   area.Capacity.Get(class),
			Multiplier: m,
			HourlyRate: area.BaseRates.Get(class),
		}
	}
	for _, sl := range slots {
		ca, ok := byClass[sl.Class]
		if !ok {
			continue
		}
		switch sl.Status {
		case domain.SlotAvailable:
			ca.Available++
		case domain.SlotReserved:
			ca.Reserved++
		case domain.SlotOccupied:
			ca.Occupied++
		case domain.SlotMaintenance:
			ca.Maintenance++
		}
	}
	for _, class := range domain.VehicleClasses {
		out.Classes = append(out.Classes, *byClass[class])
	}
	return out, nil
}

func (inv *SlotInventory) SlotsByArea(ctx context.Context, areaID int) ([]domain.Slot, error) {
	if _, err := inv.areas.FindByID(ctx, areaID); err != nil {
		return nil, lookupErr("SlotInventory.SlotsByArea", "area", err)
	}
	slots, err := inv.slots.FindByAreaID(ctx, areaID)
	if err != nil {
		return nil, wrapErr("SlotInventory.SlotsByArea", err)
	}
	return slots, nil
}
