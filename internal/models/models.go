package models

import "time"

type UserRole string

const (
	RolePassenger UserRole = "PASSENGER"
	RoleDriver    UserRole = "DRIVER"
	RoleAdmin     UserRole = "ADMIN"
)

// ProfileLevel is the ordinal reputation tier (1..3), independent of rating.
type ProfileLevel int

const (
	Level1 ProfileLevel = 1
	Level2 ProfileLevel = 2
	Level3 ProfileLevel = 3
)

type VehicleType string

const (
	VehicleCar  VehicleType = "Carro"
	VehicleMoto VehicleType = "Moto"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type User struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Phone             string       `json:"phone"`
	ProfilePictureURL string       `json:"profile_picture_url,omitempty"`
	Role              UserRole     `json:"role"`
	Rating            float64      `json:"rating"` // 0..5
	ProfileLevel      ProfileLevel `json:"profile_level"`
}

type Vehicle struct {
	Model  string      `json:"model"`
	Plate  string      `json:"plate"`
	Type   VehicleType `json:"type"`
	Photos []string    `json:"photos,omitempty"`
}

type Driver struct {
	User
	IsOnline bool    `json:"is_online"`
	Vehicle  Vehicle `json:"vehicle"`
	Location LatLng  `json:"location"`
}

type Passenger struct {
	User
	Location LatLng `json:"location"`
}

type RideLocation struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type RideRequestStatus string

const (
	RequestSearching      RideRequestStatus = "SEARCHING"
	RequestOffersReceived RideRequestStatus = "OFFERS_RECEIVED"
	RequestCancelled      RideRequestStatus = "CANCELLED"
)

type RideRequest struct {
	ID          string            `json:"id"`
	Passenger   Passenger         `json:"passenger"`
	From        RideLocation      `json:"from"`
	To          RideLocation      `json:"to"`
	VehicleType VehicleType       `json:"vehicle_type"`
	Status      RideRequestStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

type RideOffer struct {
	ID            string  `json:"id"`
	Driver        Driver  `json:"driver"`
	RideRequestID string  `json:"ride_request_id"`
	Fare          float64 `json:"fare"`
	DriverETA     int     `json:"driver_eta_minutes"`
}

type RideStatus string

const (
	RideAccepted             RideStatus = "ACCEPTED"
	RideDriverArriving       RideStatus = "DRIVER_ARRIVING"
	RideInProgress           RideStatus = "IN_PROGRESS"
	RideCompleted            RideStatus = "COMPLETED"
	RideCancelledByPassenger RideStatus = "CANCELLED_BY_PASSENGER"
	RideCancelledByDriver    RideStatus = "CANCELLED_BY_DRIVER"
)

type Ride struct {
	ID        string       `json:"id"`
	Passenger Passenger    `json:"passenger"`
	Driver    Driver       `json:"driver"`
	From      RideLocation `json:"from"`
	To        RideLocation `json:"to"`
	// Fare is fixed at acceptance time and never changes afterwards.
	Fare      float64    `json:"fare"`
	Status    RideStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// PricingConfig holds per-vehicle-type rates. The hourly rates are stored and
// editable by the admin but unused by fare computation.
type PricingConfig struct {
	CarMinKmRate      float64 `json:"car_min_km_rate"`
	CarMinFare        float64 `json:"car_min_fare"`
	CarMinHourlyRate  float64 `json:"car_min_hourly_rate"`
	MotoMinKmRate     float64 `json:"moto_min_km_rate"`
	MotoMinFare       float64 `json:"moto_min_fare"`
	MotoMinHourlyRate float64 `json:"moto_min_hourly_rate"`
}

type Screen string

const (
	ScreenLogin          Screen = "LOGIN"
	ScreenPassengerHome  Screen = "PASSENGER_HOME"
	ScreenDriverHome     Screen = "DRIVER_HOME"
	ScreenAdminPanel     Screen = "ADMIN_PANEL"
	ScreenRideInProgress Screen = "RIDE_IN_PROGRESS"
)

// Snapshot is the full view of the session handed to the presentation layer
// after every mutation. It is sufficient to render any screen without
// additional queries.
type Snapshot struct {
	User       *User         `json:"user"`
	Screen     Screen        `json:"screen"`
	Pricing    PricingConfig `json:"pricing"`
	Drivers    []Driver      `json:"drivers"`
	Passengers []Passenger   `json:"passengers"`
	Request    *RideRequest  `json:"request"`
	Offers     []RideOffer   `json:"offers"`
	Ride       *Ride         `json:"ride"`
}
