package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"plate-intake-service/internal/domain/vehicle"
	"plate-intake-service/internal/repository"
	"plate-intake-service/internal/upload"
	"plate-intake-service/internal/utils"
)

// VehicleRepository is the persistence contract the vehicle service needs.
// Lookups return repository.ErrNotFound when nothing matches.
type VehicleRepository interface {
	FindByID(ctx context.Context, id string) (*vehicle.Record, error)
	FindByLicenseNumber(ctx context.Context, number string) (*vehicle.Record, error)
	FindByDeclaredLicenseNumber(ctx context.Context, number string) (*vehicle.Record, error)
	Create(ctx context.Context, rec *vehicle.Record) error
	UpdatePhotoSlot(ctx context.Context, id, ownerID string, index int, url string) error
	UpdateFields(ctx context.Context, id string, fields vehicle.Fields) error
	UpdateStatus(ctx context.Context, id string, status vehicle.Status) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, status *vehicle.Status) ([]vehicle.Record, error)
	List(ctx context.Context, status *vehicle.Status, limit, offset int) ([]vehicle.Record, error)
}

type VehicleService struct {
	repo         VehicleRepository
	orchestrator *Orchestrator
	log          zerolog.Logger
}

func NewVehicleService(repo VehicleRepository, orchestrator *Orchestrator, log zerolog.Logger) *VehicleService {
	return &VehicleService{
		repo:         repo,
		orchestrator: orchestrator,
		log:          log,
	}
}

// Registration is what an owner submits alongside the intake photos.
type Registration struct {
	OwnerID               string
	DeclaredLicenseNumber string
	Details               vehicle.Details
}

func (r *Registration) validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	r.DeclaredLicenseNumber = utils.NormalizePlate(r.DeclaredLicenseNumber)
	if r.DeclaredLicenseNumber == "" {
		return fmt.Errorf("%w: declared license number is required", ErrValidation)
	}
	return nil
}

// AddVehicle runs the full intake: upload and read all photos, then register.
func (s *VehicleService) AddVehicle(ctx context.Context, photos []upload.Photo, reg Registration) (*vehicle.Record, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}
	results, err := s.orchestrator.Ingest(ctx, photos, reg.OwnerID)
	if err != nil {
		return nil, err
	}
	return s.Register(ctx, results, reg)
}

// Register creates a vehicle from an intake batch once both plate photos
// agree and the plate is not registered yet.
func (s *VehicleService) Register(ctx context.Context, results []vehicle.ExtractionResult, reg Registration) (*vehicle.Record, error) {
	if len(results) < vehicle.PhotoCount {
		s.log.Error().Int("results", len(results)).Msg("intake batch is incomplete")
		return nil, ErrIncompleteBatch
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}

	front, rear := results[vehicle.SlotFront], results[vehicle.SlotRear]
	if !front.Found || !rear.Found || front.LicenseNumber != rear.LicenseNumber {
		s.log.Info().
			Str("owner_id", reg.OwnerID).
			Str("front", front.LicenseNumber).
			Str("rear", rear.LicenseNumber).
			Msg("plate reads do not agree")
		return nil, ErrConsensusMismatch
	}
	number := front.LicenseNumber

	registered, err := s.isRegistered(ctx, number, reg.DeclaredLicenseNumber)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrDuplicateRegistration
	}

	rec := &vehicle.Record{
		OwnerID:               reg.OwnerID,
		DeclaredLicenseNumber: reg.DeclaredLicenseNumber,
		VerifiedLicenseNumber: number,
		Jurisdiction:          front.Jurisdiction,
		Status:                vehicle.StatusAvailable,
		Details:               reg.Details,
	}
	rec.ApplyDefaults()
	for i := range rec.Photos {
		rec.Photos[i] = results[i].ImageURL
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRegistration
		}
		s.log.Error().Err(err).Str("license_number", number).Msg("failed to create vehicle")
		return nil, fmt.Errorf("%w: create vehicle: %w", ErrStorage, err)
	}

	s.log.Info().
		Str("vehicle_id", rec.ID).
		Str("owner_id", rec.OwnerID).
		Str("license_number", number).
		Str("jurisdiction", rec.Jurisdiction).
		Msg("vehicle registered")

	return rec, nil
}

// isRegistered reports whether a vehicle with photos already holds either the
// verified or the declared number. Both lookups always run.
func (s *VehicleService) isRegistered(ctx context.Context, verified, declared string) (bool, error) {
	byVerified, err := s.lookup(ctx, s.repo.FindByLicenseNumber, verified)
	if err != nil {
		return false, err
	}
	byDeclared, err := s.lookup(ctx, s.repo.FindByDeclaredLicenseNumber, declared)
	if err != nil {
		return false, err
	}
	return (byVerified != nil && byVerified.HasPhotos()) || (byDeclared != nil && byDeclared.HasPhotos()), nil
}

func (s *VehicleService) lookup(ctx context.Context, find func(context.Context, string) (*vehicle.Record, error), number string) (*vehicle.Record, error) {
	rec, err := find(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("license_number", number).Msg("failed to look up vehicle")
		return nil, fmt.Errorf("%w: look up vehicle: %w", ErrStorage, err)
	}
	return rec, nil
}

// UpdateSlot replaces the photo in one slot. Plate slots are read again and
// must show the vehicle's verified number.
func (s *VehicleService) UpdateSlot(ctx context.Context, vehicleID string, slot vehicle.Slot, photo upload.Photo, requesterID string) (*vehicle.Record, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: unknown photo slot", ErrValidation)
	}
	if len(photo.Data) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}

	rec, err := s.ownedVehicle(ctx, vehicleID, requesterID)
	if err != nil {
		return nil, err
	}
	if rec.Status != vehicle.StatusAvailable {
		return nil, ErrUnavailable
	}

	result, err := s.orchestrator.Process(ctx, slot, photo)
	if err != nil {
		return nil, err
	}
	if slot.CarriesPlate() && (!result.Found || result.LicenseNumber != rec.VerifiedLicenseNumber) {
		s.log.Info().
			Str("vehicle_id", rec.ID).
			Str("slot", slot.String()).
			Str("expected", rec.VerifiedLicenseNumber).
			Str("read", result.LicenseNumber).
			Msg("replacement plate does not match vehicle")
		return nil, ErrPlateMismatch
	}

	if err := s.repo.UpdatePhotoSlot(ctx, rec.ID, requesterID, slot.Index(), result.ImageURL); err != nil {
		switch {
		case errors.Is(err, repository.ErrOwnerMismatch):
			return nil, ErrUnauthorized
		case errors.Is(err, repository.ErrUnavailable):
			return nil, ErrUnavailable
		}
		return nil, s.storageError(err, "update photo slot")
	}
	rec.Photos[slot.Index()] = result.ImageURL

	s.log.Info().
		Str("vehicle_id", rec.ID).
		Str("slot", slot.String()).
		Msg("vehicle photo replaced")

	return rec, nil
}

// UpdateInfo edits whitelisted metadata. A new declared number must not be
// declared by another vehicle.
func (s *VehicleService) UpdateInfo(ctx context.Context, vehicleID string, fields vehicle.Fields, requesterID string) (*vehicle.Record, error) {
	if fields.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	rec, err := s.ownedVehicle(ctx, vehicleID, requesterID)
	if err != nil {
		return nil, err
	}

	if fields.DeclaredLicenseNumber != nil {
		declared := utils.NormalizePlate(*fields.DeclaredLicenseNumber)
		if declared == "" {
			return nil, fmt.Errorf("%w: declared license number cannot be empty", ErrValidation)
		}
		fields.DeclaredLicenseNumber = &declared

		other, err := s.lookup(ctx, s.repo.FindByDeclaredLicenseNumber, declared)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != rec.ID {
			return nil, ErrDuplicateRegistration
		}
	}

	if err := s.repo.UpdateFields(ctx, rec.ID, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRegistration
		}
		return nil, s.storageError(err, "update vehicle fields")
	}
	fields.Apply(rec)

	s.log.Info().Str("vehicle_id", rec.ID).Msg("vehicle information updated")
	return rec, nil
}

func (s *VehicleService) UpdateStatus(ctx context.Context, vehicleID string, status vehicle.Status, requesterID string) (*vehicle.Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	rec, err := s.ownedVehicle(ctx, vehicleID, requesterID)
	if err != nil {
		return nil, err
	}
	if rec.Status == status {
		return rec, nil
	}

	if err := s.repo.UpdateStatus(ctx, rec.ID, status); err != nil {
		return nil, s.storageError(err, "update vehicle status")
	}
	rec.Status = status

	s.log.Info().Str("vehicle_id", rec.ID).Str("status", string(status)).Msg("vehicle status changed")
	return rec, nil
}

func (s *VehicleService) Delete(ctx context.Context, vehicleID, requesterID string) error {
	rec, err := s.ownedVehicle(ctx, vehicleID, requesterID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rec.ID); err != nil {
		return s.storageError(err, "delete vehicle")
	}
	s.log.Info().Str("vehicle_id", rec.ID).Str("owner_id", rec.OwnerID).Msg("vehicle deleted")
	return nil
}

func (s *VehicleService) Get(ctx context.Context, vehicleID string) (*vehicle.Record, error) {
	rec, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, s.storageError(err, "find vehicle")
	}
	return rec, nil
}

// ListByOwner lists an owner's vehicles. Public listings only show
// available vehicles.
func (s *VehicleService) ListByOwner(ctx context.Context, ownerID string, onlyAvailable bool) ([]vehicle.Record, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	var status *vehicle.Status
	if onlyAvailable {
		available := vehicle.StatusAvailable
		status = &available
	}
	recs, err := s.repo.ListByOwner(ctx, ownerID, status)
	if err != nil {
		return nil, s.storageError(err, "list owner vehicles")
	}
	return recs, nil
}

func (s *VehicleService) List(ctx context.Context, status string, limit, offset int) ([]vehicle.Record, error) {
	var filter *vehicle.Status
	if status != "" {
		st := vehicle.Status(status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		filter = &st
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	recs, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, s.storageError(err, "list vehicles")
	}
	return recs, nil
}

// UploadOne hosts a single photo outside of any vehicle.
func (s *VehicleService) UploadOne(ctx context.Context, photo upload.Photo) (string, error) {
	return s.orchestrator.UploadOne(ctx, photo)
}

func (s *VehicleService) ownedVehicle(ctx context.Context, vehicleID, requesterID string) (*vehicle.Record, error) {
	if strings.TrimSpace(vehicleID) == "" {
		return nil, fmt.Errorf("%w: car id is required", ErrValidation)
	}
	rec, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, s.storageError(err, "find vehicle")
	}
	if rec.OwnerID != requesterID {
		return nil, ErrUnauthorized
	}
	return rec, nil
}

func (s *VehicleService) storageError(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	s.log.Error().Err(err).Str("op", op).Msg("storage error")
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// StatusCode maps a service error to the HTTP status the caller reports.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConsensusMismatch),
		errors.Is(err, ErrDuplicateRegistration),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrPlateMismatch),
		errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrRequestClosed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrRequestForbidden):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
