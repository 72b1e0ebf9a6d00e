package model

import "time"

// Route is a driver-posted intended trip.  A route starts out ACTIVE and
// transitions to COMPLETED exactly once; completing it again is a
// conflict.  Routes with approved requests are never removed, so there is
// no delete path at all; status is the single server-enforced lifecycle
// field.
//
// Fields:
//  ID              – primary key identifier.
//  OwnerID         – user who posted the route.
//  Vehicle         – vehicle type description.
//  RegistrationNum – vehicle registration plate.
//  DepartureCity   – origin city.
//  DepartureStreet – origin street.
//  DepartureNumber – origin street number.
//  ArrivalCity     – destination city.
//  ArrivalStreet   – destination street.
//  ArrivalNumber   – destination street number.
//  SelectedAt      – planned departure date/time.
//  Title           – free-form route title shown in listings.
//  Status          – ACTIVE or COMPLETED.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Route struct {
	ID              uint64    // routes.id
	OwnerID         uint64    // routes.owner_id
	Vehicle         string    // routes.vehicle
	RegistrationNum string    // routes.registration_num
	DepartureCity   string    // routes.departure_city
	DepartureStreet string    // routes.departure_street
	DepartureNumber string    // routes.departure_number
	ArrivalCity     string    // routes.arrival_city
	ArrivalStreet   string    // routes.arrival_street
	ArrivalNumber   string    // routes.arrival_number
	SelectedAt      time.Time // routes.selected_at
	Title           string    // routes.title
	Status          string    // routes.status
	CreatedAt       time.Time // routes.created_at
	UpdatedAt       time.Time // routes.updated_at
}

// Route status values.
const (
	RouteActive    = "ACTIVE"
	RouteCompleted = "COMPLETED"
)
