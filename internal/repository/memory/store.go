// Package memory is an arena-style store: every entity lives in a map keyed
// by its id and entities reference each other only by id. Reads and writes
// copy values in and out so callers never share state with the arena.
package memory

import (
	"sync"
	"time"

	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users    map[int]*domain.User
	areas    map[int]*domain.Area
	guards   map[int]map[int]bool // userID -> areaIDs
	slots    map[int]*domain.Slot
	vehicles map[int]*domain.Vehicle
	access   map[int]map[int]bool // vehicleID -> userIDs
	bookings map[int]*domain.Booking
	dues     map[int]*domain.OutstandingDue

	seq map[string]int
}

func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[int]*domain.User),
		areas:    make(map[int]*domain.Area),
		guards:   make(map[int]map[int]bool),
		slots:    make(map[int]*domain.Slot),
		vehicles: make(map[int]*domain.Vehicle),
		access:   make(map[int]map[int]bool),
		bookings: make(map[int]*domain.Booking),
		dues:     make(map[int]*domain.OutstandingDue),
		seq:      make(map[string]int),
	}
}

// nextID must be called with mu held.
func (s *Store) nextID(table string) int {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) Users() repository.UserRepository       { return &userRepo{s} }
func (s *Store) Areas() repository.AreaRepository       { return &areaRepo{s} }
func (s *Store) Slots() repository.SlotRepository       { return &slotRepo{s} }
func (s *Store) Vehicles() repository.VehicleRepository { return &vehicleRepo{s} }
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s} }
func (s *Store) Dues() repository.DueRepository         { return &dueRepo{s} }
