package roster

import "github.com/example/rota-parceira/internal/models"

// AdminPhone is the reserved phone literal that logs in as the administrator.
const AdminPhone = "00000000000"

// DefaultPassengerLocation is where newly minted passengers are placed.
var DefaultPassengerLocation = models.LatLng{Lat: -23.5505, Lng: -46.6333}

func SeedPassengers() []models.Passenger {
	return []models.Passenger{
		{
			User: models.User{
				ID:                "pass1",
				Name:              "Ana",
				Phone:             "11987654321",
				Role:              models.RolePassenger,
				Rating:            4.8,
				ProfileLevel:      models.Level3,
				ProfilePictureURL: "https://picsum.photos/seed/ana/200",
			},
			Location: models.LatLng{Lat: -23.5505, Lng: -46.6333},
		},
	}
}

func SeedDrivers() []models.Driver {
	return []models.Driver{
		{
			User: models.User{
				ID:                "driver1",
				Name:              "Carlos",
				Phone:             "11912345678",
				Role:              models.RoleDriver,
				Rating:            4.9,
				ProfileLevel:      models.Level3,
				ProfilePictureURL: "https://picsum.photos/seed/carlos/200",
			},
			IsOnline: true,
			Location: models.LatLng{Lat: -23.551, Lng: -46.634},
			Vehicle: models.Vehicle{
				Model:  "Honda Civic",
				Plate:  "BRA1Z23",
				Type:   models.VehicleCar,
				Photos: []string{"https://picsum.photos/seed/car1/400/300", "https://picsum.photos/seed/car2/400/300"},
			},
		},
		{
			User: models.User{
				ID:                "driver2",
				Name:              "Mariana",
				Phone:             "11923456789",
				Role:              models.RoleDriver,
				Rating:            4.85,
				ProfileLevel:      models.Level2,
				ProfilePictureURL: "https://picsum.photos/seed/mariana/200",
			},
			IsOnline: true,
			Location: models.LatLng{Lat: -23.549, Lng: -46.632},
			Vehicle: models.Vehicle{
				Model:  "Yamaha Fazer",
				Plate:  "BRA3Y45",
				Type:   models.VehicleMoto,
				Photos: []string{"https://picsum.photos/seed/moto1/400/300", "https://picsum.photos/seed/moto2/400/300"},
			},
		},
		{
			User: models.User{
				ID:                "driver3",
				Name:              "Bruno",
				Phone:             "11934567890",
				Role:              models.RoleDriver,
				Rating:            4.95,
				ProfileLevel:      models.Level3,
				ProfilePictureURL: "https://picsum.photos/seed/bruno/200",
			},
			IsOnline: true,
			Location: models.LatLng{Lat: -23.555, Lng: -46.639},
			Vehicle: models.Vehicle{
				Model:  "Toyota Corolla",
				Plate:  "BRA5X67",
				Type:   models.VehicleCar,
				Photos: []string{"https://picsum.photos/seed/car3/400/300", "https://picsum.photos/seed/car4/400/300"},
			},
		},
	}
}
