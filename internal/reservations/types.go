package reservations

import (
	"context"
	"errors"
	"time"
)

// Reservation stores one flight booking made through the bot.
type Reservation struct {
	Confirmation    string    `json:"confirmation"`
	SessionID       string    `json:"session_id"`
	OriginCity      string    `json:"origin_city"`
	DestinationCity string    `json:"destination_city"`
	DepartureDate   string    `json:"departure_date"`
	ReturnDate      string    `json:"return_date,omitempty"`
	Passengers      int       `json:"passengers"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	StatusBooked    = "booked"
	StatusChanged   = "changed"
	StatusCancelled = "cancelled"
)

// ErrNotFound reports a confirmation code with no stored reservation.
var ErrNotFound = errors.New("reservation not found")

// Store persists and retrieves flight reservations.
type Store interface {
	Save(ctx context.Context, r Reservation) (Reservation, error)
	Get(ctx context.Context, confirmation string) (Reservation, error)
	BySession(ctx context.Context, sessionID string) ([]Reservation, error)
	Recent(ctx context.Context, limit int) ([]Reservation, error)
	Close() error
}
