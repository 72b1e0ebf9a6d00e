// Package queue defines message payloads exchanged over the message broker.
package queue

// TripCompletedEvent is published after a route completion commits. It
// carries enough context for downstream consumers to log or trigger
// analytics without querying the primary database.
type TripCompletedEvent struct {
	RouteID       uint64   `json:"route_id"`
	OwnerID       uint64   `json:"owner_id"`
	DepartureCity string   `json:"departure_city"`
	ArrivalCity   string   `json:"arrival_city"`
	Passengers    []string `json:"passengers"`
	CompletedAt   string   `json:"completed_at"`
}

// RequestDecidedEvent is published after a ride request decision commits.
type RequestDecidedEvent struct {
	RequestID   uint64 `json:"request_id"`
	RouteID     uint64 `json:"route_id"`
	RequesterID uint64 `json:"requester_id"`
	OwnerID     uint64 `json:"owner_id"`
	Decision    string `json:"decision"`
	DecidedAt   string `json:"decided_at"`
}
