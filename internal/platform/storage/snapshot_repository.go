package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	platformerrors "clinic-server-go/internal/platform/errors"
)

// PermissionSnapshot is the ownership view of a service at decision time:
// owner id, admin id and the raw staff JSON. It is re-fetched per check and
// never cached.
type PermissionSnapshot struct {
	ServiceID uint
	OwnerID   uint
	AdminID   uint
	Staff     []byte
	Active    bool
}

// SnapshotRepository fetches permission snapshots per entity category.
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ServiceSnapshot loads the snapshot for a service row itself.
func (r *SnapshotRepository) ServiceSnapshot(ctx context.Context, serviceID uint) (PermissionSnapshot, error) {
	var service Service
	err := r.db.WithContext(ctx).
		Select("id", "owner_id", "admin_id", "staff", "active").
		First(&service, serviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PermissionSnapshot{}, platformerrors.New(platformerrors.KindNotFound,
			"snapshot.service", fmt.Sprintf("no service %d", serviceID))
	}
	if err != nil {
		return PermissionSnapshot{}, platformerrors.Wrap(platformerrors.KindStorage,
			"snapshot.service", "failed to query service", err)
	}
	return PermissionSnapshot{
		ServiceID: service.ID,
		OwnerID:   service.OwnerID,
		AdminID:   service.AdminID,
		Staff:     []byte(service.Staff),
		Active:    service.Active,
	}, nil
}

// CaseSnapshot resolves a case to its parent service's snapshot.
func (r *SnapshotRepository) CaseSnapshot(ctx context.Context, caseID uint) (PermissionSnapshot, error) {
	var record CaseRecord
	err := r.db.WithContext(ctx).
		Select("id", "service_id").
		First(&record, caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PermissionSnapshot{}, platformerrors.New(platformerrors.KindNotFound,
			"snapshot.case", fmt.Sprintf("no case %d", caseID))
	}
	if err != nil {
		return PermissionSnapshot{}, platformerrors.Wrap(platformerrors.KindStorage,
			"snapshot.case", "failed to query case", err)
	}
	return r.ServiceSnapshot(ctx, record.ServiceID)
}

// AppointmentSnapshot resolves an appointment to its parent service's
// snapshot.
func (r *SnapshotRepository) AppointmentSnapshot(ctx context.Context, appointmentID uint) (PermissionSnapshot, error) {
	var record Appointment
	err := r.db.WithContext(ctx).
		Select("id", "service_id").
		First(&record, appointmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PermissionSnapshot{}, platformerrors.New(platformerrors.KindNotFound,
			"snapshot.appointment", fmt.Sprintf("no appointment %d", appointmentID))
	}
	if err != nil {
		return PermissionSnapshot{}, platformerrors.Wrap(platformerrors.KindStorage,
			"snapshot.appointment", "failed to query appointment", err)
	}
	return r.ServiceSnapshot(ctx, record.ServiceID)
}
