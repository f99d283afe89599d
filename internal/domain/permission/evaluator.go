package permission

import (
	"context"
	"net/http"

	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/platform/errors"
)

// GroupProviders is the tenant namespace for service owners.
const GroupProviders = "providers"

// Denial is the structured rejection an operation produces instead of an
// error crossing the boundary. The zero value means "allowed".
type Denial struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Denied reports whether the decision carries a rejection.
func (d Denial) Denied() bool {
	return d.Code != 0
}

func forbidden(message string) Denial {
	return Denial{Code: http.StatusForbidden, Message: message}
}

func badRequest(message string) Denial {
	return Denial{Code: http.StatusBadRequest, Message: message}
}

// Operation names the permission checks the evaluator answers.
type Operation int

const (
	OpRead Operation = iota
	OpUpdate
	OpDelete
	OpToggleActive
	OpGetServices
	OpManageStaff
)

func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpToggleActive:
		return "toggle_active"
	case OpGetServices:
		return "get_services"
	case OpManageStaff:
		return "manage_staff"
	default:
		return "unknown"
	}
}

// NewEntity carries the creation payload fields the evaluator inspects.
type NewEntity struct {
	// OwnerID and AdminID apply to service creation.
	OwnerID uint
	AdminID uint
	// ServiceID is the parent for case and appointment creation.
	ServiceID uint
}

// Evaluator decides, per entity category and per actor, whether an
// operation is authorized. Pure decision logic; the only I/O is the
// per-check ownership snapshot fetch.
type Evaluator struct {
	snapshots SnapshotSource
	logger    model.Logger
}

// NewEvaluator wires the evaluator with its snapshot source.
func NewEvaluator(snapshots SnapshotSource, logger model.Logger) *Evaluator {
	return &Evaluator{
		snapshots: snapshots,
		logger:    logger,
	}
}

// CanCreate authorizes creating a new entity of the category.
func (e *Evaluator) CanCreate(ctx context.Context, requester model.Requester, category Category, payload NewEntity) (bool, Denial) {
	switch category {
	case CategoryClient:
		// Account registration has no owner to check.
		return true, Denial{}
	case CategoryService:
		if requester.Group != GroupProviders {
			return false, forbidden("only providers can create services")
		}
		if payload.OwnerID != requester.ID || payload.AdminID != requester.ID {
			return false, forbidden("a new service must name its creator as owner and admin")
		}
		return true, Denial{}
	case CategoryCase, CategoryAppointment:
		if payload.ServiceID == 0 {
			return false, badRequest("a parent service is required")
		}
		return e.checkOwnership(ctx, requester, CategoryService, payload.ServiceID)
	default:
		return false, badRequest("unknown entity category")
	}
}

// CanRead authorizes reading the entity.
func (e *Evaluator) CanRead(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	return e.evaluate(ctx, OpRead, requester, category, entityID)
}

// CanUpdate authorizes updating the entity.
func (e *Evaluator) CanUpdate(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	return e.evaluate(ctx, OpUpdate, requester, category, entityID)
}

// CanDelete authorizes deleting the entity.
func (e *Evaluator) CanDelete(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	return e.evaluate(ctx, OpDelete, requester, category, entityID)
}

// CanToggleActive authorizes suspending or activating the entity.
func (e *Evaluator) CanToggleActive(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	return e.evaluate(ctx, OpToggleActive, requester, category, entityID)
}

// CanGetServices authorizes listing the services linked to the entity.
func (e *Evaluator) CanGetServices(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	return e.evaluate(ctx, OpGetServices, requester, category, entityID)
}

// CanManageStaff authorizes editing the entity's staff document.
func (e *Evaluator) CanManageStaff(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	return e.evaluate(ctx, OpManageStaff, requester, category, entityID)
}

func (e *Evaluator) evaluate(ctx context.Context, op Operation, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	switch category {
	case CategoryClient:
		// Self-service only: the requester may touch exactly their own
		// account row.
		if requester.ID != entityID {
			return false, forbidden("clients can only manage their own account")
		}
		return true, Denial{}

	case CategoryService:
		switch op {
		case OpDelete:
			return e.checkOwnerOnly(ctx, requester, category, entityID)
		case OpToggleActive, OpManageStaff:
			return e.checkOwnerOrAdmin(ctx, requester, category, entityID)
		default:
			return e.checkOwnership(ctx, requester, category, entityID)
		}

	case CategoryCase, CategoryAppointment:
		// Every operation on a scoped entity is decided against the parent
		// service's snapshot.
		return e.checkOwnership(ctx, requester, category, entityID)

	default:
		return false, badRequest("unknown entity category")
	}
}

func (e *Evaluator) checkOwnerOnly(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	snapshot, err := category.snapshot(ctx, e.snapshots, entityID)
	if err != nil {
		return false, e.snapshotDenial(err)
	}
	if snapshot.OwnerID != requester.ID {
		return false, forbidden("only the owner can do this")
	}
	return true, Denial{}
}

func (e *Evaluator) checkOwnerOrAdmin(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	snapshot, err := category.snapshot(ctx, e.snapshots, entityID)
	if err != nil {
		return false, e.snapshotDenial(err)
	}
	if snapshot.OwnerID == requester.ID || snapshot.AdminID == requester.ID {
		return true, Denial{}
	}
	return false, forbidden("only the owner or admin can do this")
}

// checkOwnership is the core decision primitive: owner, or admin, or a
// staff member holding the delete bit. The delete bit is tested for every
// operation, matching the observed behavior of the permission model.
func (e *Evaluator) checkOwnership(ctx context.Context, requester model.Requester, category Category, entityID uint) (bool, Denial) {
	snapshot, err := category.snapshot(ctx, e.snapshots, entityID)
	if err != nil {
		return false, e.snapshotDenial(err)
	}
	if snapshot.OwnerID == requester.ID || snapshot.AdminID == requester.ID {
		return true, Denial{}
	}

	staff, err := staffLookup(snapshot.Staff, requester.ID)
	if err != nil {
		e.logger.Error("staff document for service %d is unreadable: %v", snapshot.ServiceID, err)
		return false, Denial{Code: http.StatusInternalServerError, Message: "permission check failed"}
	}
	if staff.HasPermission(PowerDelete) {
		return true, Denial{}
	}
	return false, forbidden("not authorized for this service")
}

func (e *Evaluator) snapshotDenial(err error) Denial {
	if errors.IsKind(err, errors.KindNotFound) {
		return Denial{Code: http.StatusNotFound, Message: "entity not found"}
	}
	e.logger.Error("permission snapshot fetch failed: %v", err)
	return Denial{Code: http.StatusInternalServerError, Message: "permission check failed"}
}
