package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"plate-intake-service/internal/domain/vehicle"
	"plate-intake-service/internal/plate"
	"plate-intake-service/internal/upload"
)

// Orchestrator uploads an intake batch and classifies every photo. Photos
// are uploaded concurrently; results keep the input order.
type Orchestrator struct {
	uploader    upload.Uploader
	classifier  *plate.Classifier
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger
}

func NewOrchestrator(uploader upload.Uploader, classifier *plate.Classifier, timeout time.Duration, concurrency int, log zerolog.Logger) *Orchestrator {
	if concurrency <= 0 || concurrency > vehicle.PhotoCount {
		concurrency = vehicle.PhotoCount
	}
	return &Orchestrator{
		uploader:    uploader,
		classifier:  classifier,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log,
	}
}

// Ingest uploads exactly PhotoCount photos in slot order. The first failing
// upload cancels the rest and fails the batch.
func (o *Orchestrator) Ingest(ctx context.Context, photos []upload.Photo, ownerID string) ([]vehicle.ExtractionResult, error) {
	if len(photos) < vehicle.PhotoCount {
		return nil, fmt.Errorf("%w: one or more images is missing", ErrValidation)
	}
	if len(photos) > vehicle.PhotoCount {
		return nil, fmt.Errorf("%w: expected %d images, got %d", ErrValidation, vehicle.PhotoCount, len(photos))
	}

	results := make([]vehicle.ExtractionResult, vehicle.PhotoCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, slot := range vehicle.Slots() {
		photo := photos[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := o.Process(gctx, slot, photo)
			if err != nil {
				return err
			}
			results[slot.Index()] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.log.Error().Err(err).Str("owner_id", ownerID).Msg("intake batch aborted")
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		return nil, err
	}

	o.log.Debug().
		Str("owner_id", ownerID).
		Bool("front_found", results[vehicle.SlotFront].Found).
		Bool("rear_found", results[vehicle.SlotRear].Found).
		Msg("intake batch uploaded")

	return results, nil
}

// Process uploads one photo for slot, reading its text when the slot carries
// a plate, and classifies it.
func (o *Orchestrator) Process(ctx context.Context, slot vehicle.Slot, photo upload.Photo) (vehicle.ExtractionResult, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res, err := o.uploader.Upload(ctx, photo, upload.Options{OCR: slot.CarriesPlate()})
	if err != nil {
		return vehicle.ExtractionResult{}, fmt.Errorf("%w: upload %s photo: %w", ErrUpstream, slot, err)
	}

	var lines []string
	if slot.CarriesPlate() {
		lines = res.Lines()
	}
	result := o.classifier.Classify(lines, res.URL)

	o.log.Debug().
		Str("slot", slot.String()).
		Bool("found", result.Found).
		Str("license_number", result.LicenseNumber).
		Str("jurisdiction", result.Jurisdiction).
		Msg("photo classified")

	return result, nil
}

// UploadOne hosts a photo without reading it.
func (o *Orchestrator) UploadOne(ctx context.Context, photo upload.Photo) (string, error) {
	if len(photo.Data) == 0 {
		return "", fmt.Errorf("%w: image is required", ErrValidation)
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res, err := o.uploader.Upload(ctx, photo, upload.Options{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return res.URL, nil
}
