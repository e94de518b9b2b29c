package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"plate-intake-service/internal/domain/rental"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

type VehicleRequest struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	VehicleID string `gorm:"type:uuid;not null;index"`
	DriverID  string `gorm:"not null"`
	Status    string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*rental.Request, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *RequestRepository) FindByDriverAndVehicle(ctx context.Context, driverID, vehicleID string) (*rental.Request, error) {
	return r.findOne(r.db.WithContext(ctx).Where("driver_id = ? AND vehicle_id = ?", driverID, vehicleID))
}

func (r *RequestRepository) findOne(query *gorm.DB) (*rental.Request, error) {
	var row VehicleRequest
	err := query.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toRequest(), nil
}

func (r *RequestRepository) Create(ctx context.Context, req *rental.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = rental.StatusOpen
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	row := fromRequest(req)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status rental.Status) error {
	res := r.db.WithContext(ctx).Model(&VehicleRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func fromRequest(req *rental.Request) VehicleRequest {
	return VehicleRequest{
		ID:        req.ID,
		VehicleID: req.VehicleID,
		DriverID:  req.DriverID,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
}

func (v *VehicleRequest) toRequest() *rental.Request {
	return &rental.Request{
		ID:        v.ID,
		VehicleID: v.VehicleID,
		DriverID:  v.DriverID,
		Status:    rental.Status(v.Status),
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
