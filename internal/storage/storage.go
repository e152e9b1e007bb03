// Package storage defines the alert journal interface and its implementations.
package storage

import (
	"context"
	"errors"

	"fhunt_bot/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Storage records every alert surfaced to the chat.
type Storage interface {
	RecordAlert(ctx context.Context, a *model.Alert) error
	CountByDay(ctx context.Context, day string) (map[model.Category]int, error)
	ListAlerts(ctx context.Context, kind model.Category, day string, limit int) ([]model.Alert, error)
	FindAlert(ctx context.Context, entityID model.EntityID) (*model.Alert, error)

	Close() error
}
