package permission

import (
	"context"
	"fmt"

	"clinic-server-go/internal/platform/storage"
)

// Category tags the closed set of entity families the evaluator decides
// over. Each variant supplies its table name and the query resolving an
// entity to its parent service's ownership snapshot.
type Category int

const (
	// CategoryClient is a person managing their own account.
	CategoryClient Category = iota
	// CategoryService is an owned business entity: clinic, pharmacy, lab,
	// radiology center.
	CategoryService
	// CategoryCase is a visit or prescription scoped under a service.
	CategoryCase
	// CategoryAppointment is a booking scoped under a service.
	CategoryAppointment
)

func (c Category) String() string {
	switch c {
	case CategoryClient:
		return "client"
	case CategoryService:
		return "service"
	case CategoryCase:
		return "case"
	case CategoryAppointment:
		return "appointment"
	default:
		return "unknown"
	}
}

// TableName returns the backing table for the category.
func (c Category) TableName() string {
	switch c {
	case CategoryClient:
		return "accounts"
	case CategoryService:
		return "services"
	case CategoryCase:
		return "case_records"
	case CategoryAppointment:
		return "appointments"
	default:
		return ""
	}
}

// SnapshotSource is the database collaborator fetching ownership snapshots.
type SnapshotSource interface {
	ServiceSnapshot(ctx context.Context, serviceID uint) (storage.PermissionSnapshot, error)
	CaseSnapshot(ctx context.Context, caseID uint) (storage.PermissionSnapshot, error)
	AppointmentSnapshot(ctx context.Context, appointmentID uint) (storage.PermissionSnapshot, error)
}

// snapshot dispatches the category-specific permission query.
func (c Category) snapshot(ctx context.Context, src SnapshotSource, entityID uint) (storage.PermissionSnapshot, error) {
	switch c {
	case CategoryService:
		return src.ServiceSnapshot(ctx, entityID)
	case CategoryCase:
		return src.CaseSnapshot(ctx, entityID)
	case CategoryAppointment:
		return src.AppointmentSnapshot(ctx, entityID)
	default:
		return storage.PermissionSnapshot{}, fmt.Errorf("category %s has no ownership snapshot", c)
	}
}
