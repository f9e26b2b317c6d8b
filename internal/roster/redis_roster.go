package roster

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/example/rota-parceira/internal/models"
)

const (
	driversHashKey    = "roster:drivers"
	passengersHashKey = "roster:passengers"
	driversGeoKey     = "roster:drivers_geo"
)

// Redis stores the roster in Redis hashes (one JSON blob per user) plus a GEO
// set for driver positions. Lookups are best-effort: on a Redis error the
// methods report "not found" rather than failing the whole session, matching
// how the simulation treats every roster miss.
type Redis struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedis(addr, password string) *Redis {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &Redis{client: c, ctx: context.Background()}
}

// Seed writes the stock cast into Redis if the driver hash is empty.
func (r *Redis) Seed() error {
	n, err := r.client.HLen(r.ctx, driversHashKey).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, d := range SeedDrivers() {
		if err := r.upsertDriver(d); err != nil {
			return err
		}
	}
	for _, p := range SeedPassengers() {
		if err := r.putPassenger(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) upsertDriver(d models.Driver) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := r.client.HSet(r.ctx, driversHashKey, d.ID, b).Err(); err != nil {
		return err
	}
	return r.client.GeoAdd(r.ctx, driversGeoKey, &redis.GeoLocation{
		Name:      d.ID,
		Longitude: d.Location.Lng,
		Latitude:  d.Location.Lat,
	}).Err()
}

func (r *Redis) putPassenger(p models.Passenger) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.HSet(r.ctx, passengersHashKey, p.ID, b).Err()
}

func (r *Redis) Drivers() []models.Driver {
	vals, err := r.client.HGetAll(r.ctx, driversHashKey).Result()
	if err != nil {
		return nil
	}
	out := make([]models.Driver, 0, len(vals))
	for _, v := range vals {
		var d models.Driver
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	sortDrivers(out)
	return out
}

func (r *Redis) DriverByID(id string) (models.Driver, bool) {
	v, err := r.client.HGet(r.ctx, driversHashKey, id).Result()
	if err != nil {
		return models.Driver{}, false
	}
	var d models.Driver
	if err := json.Unmarshal([]byte(v), &d); err != nil {
		return models.Driver{}, false
	}
	return d, true
}

func (r *Redis) DriverByPhone(phone string) (models.Driver, bool) {
	for _, d := range r.Drivers() {
		if d.Phone == phone {
			return d, true
		}
	}
	return models.Driver{}, false
}

func (r *Redis) SetDriverOnline(id string, online bool) error {
	d, ok := r.DriverByID(id)
	if !ok {
		return ErrUnknownDriver
	}
	d.IsOnline = online
	return r.upsertDriver(d)
}

func (r *Redis) Passengers() []models.Passenger {
	vals, err := r.client.HGetAll(r.ctx, passengersHashKey).Result()
	if err != nil {
		return nil
	}
	out := make([]models.Passenger, 0, len(vals))
	for _, v := range vals {
		var p models.Passenger
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Redis) PassengerByID(id string) (models.Passenger, bool) {
	v, err := r.client.HGet(r.ctx, passengersHashKey, id).Result()
	if err != nil {
		return models.Passenger{}, false
	}
	var p models.Passenger
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return models.Passenger{}, false
	}
	return p, true
}

func (r *Redis) PassengerByPhone(phone string) (models.Passenger, bool) {
	for _, p := range r.Passengers() {
		if p.Phone == phone {
			return p, true
		}
	}
	return models.Passenger{}, false
}

func (r *Redis) AddPassenger(p models.Passenger) {
	_ = r.putPassenger(p)
}
