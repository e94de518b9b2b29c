package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"plate-intake-service/internal/domain/rental"
	"plate-intake-service/internal/domain/vehicle"
	"plate-intake-service/internal/repository"
)

type RentalRequestRepository interface {
	FindByID(ctx context.Context, id string) (*rental.Request, error)
	FindByDriverAndVehicle(ctx context.Context, driverID, vehicleID string) (*rental.Request, error)
	Create(ctx context.Context, req *rental.Request) error
	UpdateStatus(ctx context.Context, id string, status rental.Status) error
}

// VehicleFinder is the part of the vehicle store rental requests read.
type VehicleFinder interface {
	FindByID(ctx context.Context, id string) (*vehicle.Record, error)
}

type RequestService struct {
	requests RentalRequestRepository
	vehicles VehicleFinder
	log      zerolog.Logger
}

func NewRequestService(requests RentalRequestRepository, vehicles VehicleFinder, log zerolog.Logger) *RequestService {
	return &RequestService{
		requests: requests,
		vehicles: vehicles,
		log:      log,
	}
}

// Create opens a request from driverID for an available vehicle. A driver
// holds at most one request per vehicle.
func (s *RequestService) Create(ctx context.Context, vehicleID, driverID string) (*rental.Request, error) {
	if strings.TrimSpace(vehicleID) == "" {
		return nil, fmt.Errorf("%w: car id is required", ErrValidation)
	}
	if strings.TrimSpace(driverID) == "" {
		return nil, fmt.Errorf("%w: driver is required", ErrValidation)
	}

	_, err := s.requests.FindByDriverAndVehicle(ctx, driverID, vehicleID)
	switch {
	case err == nil:
		return nil, ErrDuplicateRequest
	case !errors.Is(err, repository.ErrNotFound):
		return nil, s.storageError(err, "find request")
	}

	if _, err := s.availableVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	req := &rental.Request{
		VehicleID: vehicleID,
		DriverID:  driverID,
		Status:    rental.StatusOpen,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRequest
		}
		return nil, s.storageError(err, "create request")
	}

	s.log.Info().
		Str("request_id", req.ID).
		Str("vehicle_id", vehicleID).
		Str("driver_id", driverID).
		Msg("rental request opened")

	return req, nil
}

// UpdateStatus lets the vehicle owner move a request that is not closed.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID string, status rental.Status, requesterID string) (*rental.Request, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrValidation)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown request status %q", ErrValidation, status)
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, s.storageError(err, "find request")
	}
	if req.Status == rental.StatusClosed {
		return nil, ErrRequestClosed
	}

	car, err := s.availableVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != requesterID {
		return nil, ErrRequestForbidden
	}

	if err := s.requests.UpdateStatus(ctx, req.ID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, s.storageError(err, "update request status")
	}
	req.Status = status

	s.log.Info().
		Str("request_id", req.ID).
		Str("vehicle_id", req.VehicleID).
		Str("status", string(status)).
		Msg("rental request status changed")

	return req, nil
}

func (s *RequestService) availableVehicle(ctx context.Context, vehicleID string) (*vehicle.Record, error) {
	car, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, s.storageError(err, "find vehicle")
	}
	if car.Status != vehicle.StatusAvailable {
		return nil, ErrUnavailable
	}
	return car, nil
}

func (s *RequestService) storageError(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	s.log.Error().Err(err).Str("op", op).Msg("storage error")
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
