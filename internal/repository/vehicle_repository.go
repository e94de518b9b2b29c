package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plate-intake-service/internal/domain/vehicle"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrOwnerMismatch = errors.New("record belongs to another owner")
	ErrUnavailable   = errors.New("record is not available")
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

type Vehicle struct {
	ID                    string                      `gorm:"primaryKey;type:uuid"`
	OwnerID               string                      `gorm:"not null;index"`
	DeclaredLicenseNumber string                      `gorm:"not null;uniqueIndex"`
	VerifiedLicenseNumber string                      `gorm:"not null;uniqueIndex"`
	Jurisdiction          *string
	Photos                datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	Status                string                      `gorm:"not null"`
	Model                 string                      `gorm:"not null"`
	Year                  int                         `gorm:"not null"`
	Mileage               int                         `gorm:"not null"`
	Color                 *string
	Leather               bool
	Location              string `gorm:"not null"`
	Purpose               string
	Terms                 string `gorm:"not null"`
	PaymentInterval       string `gorm:"column:payment_interval"`
	Remittance            int
	ContractDuration      string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (r *VehicleRepository) FindByID(ctx context.Context, id string) (*vehicle.Record, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *VehicleRepository) FindByLicenseNumber(ctx context.Context, number string) (*vehicle.Record, error) {
	return r.findOne(ctx, "verified_license_number = ?", number)
}

func (r *VehicleRepository) FindByDeclaredLicenseNumber(ctx context.Context, number string) (*vehicle.Record, error) {
	return r.findOne(ctx, "declared_license_number = ?", number)
}

func (r *VehicleRepository) findOne(ctx context.Context, query string, arg any) (*vehicle.Record, error) {
	var row Vehicle
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

func (r *VehicleRepository) Create(ctx context.Context, rec *vehicle.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	row := fromRecord(rec)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	return nil
}

// UpdatePhotoSlot replaces the URL at index while holding a row lock. Owner
// and availability are checked again on the locked row.
func (r *VehicleRepository) UpdatePhotoSlot(ctx context.Context, id, ownerID string, index int, url string) error {
	if index < 0 || index >= vehicle.PhotoCount {
		return fmt.Errorf("photo index %d out of range", index)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Vehicle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := checkSlotWritable(&row, ownerID); err != nil {
			return err
		}

		photos := make(datatypes.JSONSlice[string], vehicle.PhotoCount)
		copy(photos, row.Photos)
		photos[index] = url

		return tx.Model(&Vehicle{}).
			Where("id = ?", id).
			Updates(map[string]any{"photos": photos, "updated_at": time.Now()}).Error
	})
}

func checkSlotWritable(row *Vehicle, ownerID string) error {
	if row.OwnerID != ownerID {
		return ErrOwnerMismatch
	}
	if row.Status != string(vehicle.StatusAvailable) {
		return ErrUnavailable
	}
	return nil
}

func (r *VehicleRepository) UpdateFields(ctx context.Context, id string, fields vehicle.Fields) error {
	updates := fieldColumns(fields)
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.update(ctx, id, updates)
}

func (r *VehicleRepository) UpdateStatus(ctx context.Context, id string, status vehicle.Status) error {
	return r.update(ctx, id, map[string]any{"status": string(status), "updated_at": time.Now()})
}

func (r *VehicleRepository) update(ctx context.Context, id string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Vehicle{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VehicleRepository) ListByOwner(ctx context.Context, ownerID string, status *vehicle.Status) ([]vehicle.Record, error) {
	query := r.db.WithContext(ctx).Model(&Vehicle{}).Where("owner_id = ?", ownerID)
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}

	var rows []Vehicle
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func (r *VehicleRepository) List(ctx context.Context, status *vehicle.Status, limit, offset int) ([]vehicle.Record, error) {
	query := r.db.WithContext(ctx).Model(&Vehicle{})
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}

	query = query.Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
		if limit > 100 {
			query = query.Limit(100)
		}
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []Vehicle
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows), nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func fieldColumns(f vehicle.Fields) map[string]any {
	updates := map[string]any{}
	if f.DeclaredLicenseNumber != nil {
		updates["declared_license_number"] = *f.DeclaredLicenseNumber
	}
	if f.Model != nil {
		updates["model"] = *f.Model
	}
	if f.Year != nil {
		updates["year"] = *f.Year
	}
	if f.Mileage != nil {
		updates["mileage"] = *f.Mileage
	}
	if f.Color != nil {
		updates["color"] = *f.Color
	}
	if f.Leather != nil {
		updates["leather"] = *f.Leather
	}
	if f.Location != nil {
		updates["location"] = *f.Location
	}
	if f.Purpose != nil {
		updates["purpose"] = *f.Purpose
	}
	if f.Terms != nil {
		updates["terms"] = *f.Terms
	}
	if f.Interval != nil {
		updates["payment_interval"] = *f.Interval
	}
	if f.Remittance != nil {
		updates["remittance"] = *f.Remittance
	}
	if f.ContractDuration != nil {
		updates["contract_duration"] = *f.ContractDuration
	}
	return updates
}

func fromRecord(rec *vehicle.Record) Vehicle {
	row := Vehicle{
		ID:                    rec.ID,
		OwnerID:               rec.OwnerID,
		DeclaredLicenseNumber: rec.DeclaredLicenseNumber,
		VerifiedLicenseNumber: rec.VerifiedLicenseNumber,
		Photos:                datatypes.JSONSlice[string](rec.Photos[:]),
		Status:                string(rec.Status),
		Model:                 rec.Model,
		Year:                  rec.Year,
		Mileage:               rec.Mileage,
		Leather:               rec.Leather,
		Location:              rec.Location,
		Purpose:               rec.Purpose,
		Terms:                 rec.Terms,
		PaymentInterval:       rec.Interval,
		Remittance:            rec.Remittance,
		ContractDuration:      rec.ContractDuration,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
	}
	if rec.Jurisdiction != "" {
		row.Jurisdiction = &rec.Jurisdiction
	}
	if rec.Color != "" {
		row.Color = &rec.Color
	}
	return row
}

func (v *Vehicle) toRecord() *vehicle.Record {
	rec := &vehicle.Record{
		ID:                    v.ID,
		OwnerID:               v.OwnerID,
		DeclaredLicenseNumber: v.DeclaredLicenseNumber,
		VerifiedLicenseNumber: v.VerifiedLicenseNumber,
		Status:                vehicle.Status(v.Status),
		Details: vehicle.Details{
			Model:            v.Model,
			Year:             v.Year,
			Mileage:          v.Mileage,
			Leather:          v.Leather,
			Location:         v.Location,
			Purpose:          v.Purpose,
			Terms:            v.Terms,
			Interval:         v.PaymentInterval,
			Remittance:       v.Remittance,
			ContractDuration: v.ContractDuration,
		},
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
	copy(rec.Photos[:], v.Photos)
	if v.Jurisdiction != nil {
		rec.Jurisdiction = *v.Jurisdiction
	}
	if v.Color != nil {
		rec.Color = *v.Color
	}
	return rec
}

func toRecords(rows []Vehicle) []vehicle.Record {
	result := make([]vehicle.Record, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].toRecord())
	}
	return result
}
