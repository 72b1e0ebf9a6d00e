package model

import "time"

// RideRequest is a passenger's application to join a Route.  The request
// snapshots the requester's contact fields and the route cities at
// creation time so notifications stay meaningful even after profile
// edits.  PENDING is the only non-terminal state; APPROVED and REJECTED
// never transition further.  A rejected request frees the (route, user)
// slot for immediate resubmission: the Active column is set to NULL on
// rejection so the UNIQUE(route_id, requester_id, active) key only guards
// pending and approved rows.
//
// Fields:
//  ID            – primary key identifier.
//  RouteID       – route being requested.
//  RequesterID   – passenger asking for a seat.
//  OwnerID       – route owner at creation time.
//  Username      – requester handle snapshot.
//  FName, LName  – requester name snapshot.
//  Email         – requester email snapshot.
//  DepartureCity – route origin snapshot.
//  ArrivalCity   – route destination snapshot.
//  RequestedAt   – date/time the passenger asked to travel.
//  Comment       – free-form note to the driver.
//  Status        – PENDING, APPROVED or REJECTED.
//  Active        – 1 while status is not REJECTED, NULL afterwards.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type RideRequest struct {
	ID            uint64    // ride_requests.id
	RouteID       uint64    // ride_requests.route_id
	RequesterID   uint64    // ride_requests.requester_id
	OwnerID       uint64    // ride_requests.owner_id
	Username      string    // ride_requests.username
	FName         string    // ride_requests.f_name
	LName         string    // ride_requests.l_name
	Email         string    // ride_requests.email
	DepartureCity string    // ride_requests.departure_city
	ArrivalCity   string    // ride_requests.arrival_city
	RequestedAt   time.Time // ride_requests.requested_at
	Comment       string    // ride_requests.comment
	Status        string    // ride_requests.status
	Active        *uint8    // ride_requests.active (nullable)
	CreatedAt     time.Time // ride_requests.created_at
	UpdatedAt     time.Time // ride_requests.updated_at
}

// Ride request status values.
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)
