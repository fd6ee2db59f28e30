package repository

import (
	"context"

	"gmcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(ctx context.Context, l *model.Location) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error)
	FindByCode(ctx context.Context, code string) (*model.Location, error)
	ListActive(ctx context.Context) ([]model.Location, error)
	Save(ctx context.Context, l *model.Location) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	CreateAssignment(ctx context.Context, a *model.StaffAssignment) error
	FindActiveAssignment(ctx context.Context, staffID, locationID uuid.UUID) (*model.StaffAssignment, error)
	SaveAssignment(ctx context.Context, a *model.StaffAssignment) error
	ListActiveAssignmentsByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StaffAssignment, error)
	ListActiveAssignmentsForStaff(ctx context.Context, staffID uuid.UUID) ([]model.StaffAssignment, error)
}

type locationRepo struct{ db *gorm.DB }

func NewLocationRepository(db *gorm.DB) LocationRepository { return &locationRepo{db: db} }

func (r *locationRepo) Create(ctx context.Context, l *model.Location) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *locationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	return &l, err
}

func (r *locationRepo) FindByCode(ctx context.Context, code string) (*model.Location, error) {
	var l model.Location
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&l).Error
	return &l, err
}

func (r *locationRepo) ListActive(ctx context.Context) ([]model.Location, error) {
	var locations []model.Location
	err := r.db.WithContext(ctx).Where("active").Order("code ASC").Find(&locations).Error
	return locations, err
}

func (r *locationRepo) Save(ctx context.Context, l *model.Location) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *locationRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Location{}).
		Where("id = ?", id).Update("active", false).Error
}

func (r *locationRepo) CreateAssignment(ctx context.Context, a *model.StaffAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *locationRepo) FindActiveAssignment(ctx context.Context, staffID, locationID uuid.UUID) (*model.StaffAssignment, error) {
	var a model.StaffAssignment
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND location_id = ? AND active", staffID, locationID).
		First(&a).Error
	return &a, err
}

func (r *locationRepo) SaveAssignment(ctx context.Context, a *model.StaffAssignment) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *locationRepo) ListActiveAssignmentsByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StaffAssignment, error) {
	var assignments []model.StaffAssignment
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND active", locationID).
		Preload("Staff").
		Find(&assignments).Error
	return assignments, err
}

func (r *locationRepo) ListActiveAssignmentsForStaff(ctx context.Context, staffID uuid.UUID) ([]model.StaffAssignment, error) {
	var assignments []model.StaffAssignment
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND active", staffID).
		Find(&assignments).Error
	return assignments, err
}
