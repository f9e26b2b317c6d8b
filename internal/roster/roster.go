package roster

import (
	"errors"
	"sort"
	"sync"

	"github.com/example/rota-parceira/internal/models"
)

var ErrUnknownDriver = errors.New("unknown driver")

// Roster is the user directory the session reads drivers and passengers from.
// The simulation default is the seeded in-memory implementation; a Redis
// implementation exists for deployments that share a roster between restarts.
type Roster interface {
	Drivers() []models.Driver
	DriverByID(id string) (models.Driver, bool)
	DriverByPhone(phone string) (models.Driver, bool)
	SetDriverOnline(id string, online bool) error

	Passengers() []models.Passenger
	PassengerByID(id string) (models.Passenger, bool)
	PassengerByPhone(phone string) (models.Passenger, bool)
	AddPassenger(p models.Passenger)
}

type Memory struct {
	mu         sync.RWMutex
	drivers    map[string]models.Driver
	passengers map[string]models.Passenger
}

// NewMemory returns an empty in-memory roster. Use Seeded for the stock
// simulation cast.
func NewMemory() *Memory {
	return &Memory{
		drivers:    make(map[string]models.Driver),
		passengers: make(map[string]models.Passenger),
	}
}

// Seeded returns an in-memory roster populated with the mock drivers and
// passengers the simulation ships with.
func Seeded() *Memory {
	m := NewMemory()
	for _, d := range SeedDrivers() {
		m.UpsertDriver(d)
	}
	for _, p := range SeedPassengers() {
		m.AddPassenger(p)
	}
	return m
}

func (m *Memory) UpsertDriver(d models.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID] = d
}

func (m *Memory) Drivers() []models.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, d)
	}
	sortDrivers(out)
	return out
}

func (m *Memory) DriverByID(id string) (models.Driver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	return d, ok
}

func (m *Memory) DriverByPhone(phone string) (models.Driver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.Phone == phone {
			return d, true
		}
	}
	return models.Driver{}, false
}

func (m *Memory) SetDriverOnline(id string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrUnknownDriver
	}
	d.IsOnline = online
	m.drivers[id] = d
	return nil
}

func (m *Memory) Passengers() []models.Passenger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Passenger, 0, len(m.passengers))
	for _, p := range m.passengers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) PassengerByID(id string) (models.Passenger, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.passengers[id]
	return p, ok
}

func (m *Memory) PassengerByPhone(phone string) (models.Passenger, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.passengers {
		if p.Phone == phone {
			return p, true
		}
	}
	return models.Passenger{}, false
}

func (m *Memory) AddPassenger(p models.Passenger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passengers[p.ID] = p
}

// sortDrivers keeps enumeration order stable so the offer stagger is
// deterministic for a given roster.
func sortDrivers(ds []models.Driver) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}
