package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"plate-intake-service/internal/domain/rental"
	"plate-intake-service/internal/domain/vehicle"
	"plate-intake-service/internal/plate"
	"plate-intake-service/internal/repository"
	"plate-intake-service/internal/upload"
)

// -------- test fakes --------

// fakeUploader answers by photo name. Photos without a script get a plain URL
// and complete, empty OCR.
type fakeUploader struct {
	mu      sync.Mutex
	lines   map[string][]string
	status  map[string]upload.OCRStatus
	errs    map[string]error
	delay   map[string]time.Duration
	calls   []string
	ocrReqs map[string]bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		lines:   map[string][]string{},
		status:  map[string]upload.OCRStatus{},
		errs:    map[string]error{},
		delay:   map[string]time.Duration{},
		ocrReqs: map[string]bool{},
	}
}

func (f *fakeUploader) Upload(ctx context.Context, photo upload.Photo, opts upload.Options) (*upload.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, photo.Name)
	f.ocrReqs[photo.Name] = opts.OCR
	delay := f.delay[photo.Name]
	err := f.errs[photo.Name]
	lines := f.lines[photo.Name]
	status, scripted := f.status[photo.Name]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	res := &upload.Result{URL: "https://img/" + photo.Name}
	if opts.OCR {
		if !scripted {
			status = upload.OCRComplete
		}
		res.OCRStatus = status
		res.OCRLines = lines
	}
	return res, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRepo struct {
	VehicleRepository

	byID       map[string]*vehicle.Record
	byVerified map[string]*vehicle.Record
	byDeclared map[string]*vehicle.Record

	findErr   error
	createErr error
	updateErr error

	created      []*vehicle.Record
	slotUpdates  []slotUpdate
	fieldUpdates []vehicle.Fields
	statuses     []vehicle.Status
	deleted      []string
	verifiedLook []string
	declaredLook []string
}

type slotUpdate struct {
	id    string
	index int
	url   string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:       map[string]*vehicle.Record{},
		byVerified: map[string]*vehicle.Record{},
		byDeclared: map[string]*vehicle.Record{},
	}
}

func (f *fakeRepo) put(rec *vehicle.Record) {
	f.byID[rec.ID] = rec
	f.byVerified[rec.VerifiedLicenseNumber] = rec
	f.byDeclared[rec.DeclaredLicenseNumber] = rec
}

func (f *fakeRepo) find(m map[string]*vehicle.Record, key string) (*vehicle.Record, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := m[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*vehicle.Record, error) {
	return f.find(f.byID, id)
}

func (f *fakeRepo) FindByLicenseNumber(ctx context.Context, number string) (*vehicle.Record, error) {
	f.verifiedLook = append(f.verifiedLook, number)
	return f.find(f.byVerified, number)
}

func (f *fakeRepo) FindByDeclaredLicenseNumber(ctx context.Context, number string) (*vehicle.Record, error) {
	f.declaredLook = append(f.declaredLook, number)
	return f.find(f.byDeclared, number)
}

func (f *fakeRepo) Create(ctx context.Context, rec *vehicle.Record) error {
	if f.createErr != nil {
		return f.createErr
	}
	rec.ID = "car-new"
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeRepo) UpdatePhotoSlot(ctx context.Context, id, ownerID string, index int, url string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.slotUpdates = append(f.slotUpdates, slotUpdate{id: id, index: index, url: url})
	return nil
}

func (f *fakeRepo) UpdateFields(ctx context.Context, id string, fields vehicle.Fields) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.fieldUpdates = append(f.fieldUpdates, fields)
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, status vehicle.Status) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) ListByOwner(ctx context.Context, ownerID string, status *vehicle.Status) ([]vehicle.Record, error) {
	var out []vehicle.Record
	for _, rec := range f.byID {
		if rec.OwnerID == ownerID && (status == nil || rec.Status == *status) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) List(ctx context.Context, status *vehicle.Status, limit, offset int) ([]vehicle.Record, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return []vehicle.Record{{ID: "x", Status: vehicle.StatusAvailable}}, nil
}

type fakeRequestRepo struct {
	RentalRequestRepository

	byID map[string]*rental.Request

	findErr   error
	createErr error

	created  []*rental.Request
	statuses []rental.Status
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byID: map[string]*rental.Request{}}
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id string) (*rental.Request, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	req, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) FindByDriverAndVehicle(ctx context.Context, driverID, vehicleID string) (*rental.Request, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, req := range f.byID {
		if req.DriverID == driverID && req.VehicleID == vehicleID {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *rental.Request) error {
	if f.createErr != nil {
		return f.createErr
	}
	req.ID = "req-new"
	f.created = append(f.created, req)
	return nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id string, status rental.Status) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	f.statuses = append(f.statuses, status)
	return nil
}

// -------- helpers --------

var errBoom = errors.New("boom")

func newTestOrchestrator(u upload.Uploader) *Orchestrator {
	interp := plate.NewInterpreter(plate.NewJurisdictions(plate.NigerianStates...), plate.DefaultCountryToken)
	return NewOrchestrator(u, plate.NewClassifier(interp), time.Second, vehicle.PhotoCount, zerolog.Nop())
}

func newTestService(u upload.Uploader, r VehicleRepository) *VehicleService {
	return NewVehicleService(r, newTestOrchestrator(u), zerolog.Nop())
}

func intakePhotos() []upload.Photo {
	photos := make([]upload.Photo, 0, vehicle.PhotoCount)
	for _, slot := range vehicle.Slots() {
		photos = append(photos, upload.Photo{Name: slot.String(), Data: []byte(slot.String())})
	}
	return photos
}

func plateResult(url, number string) vehicle.ExtractionResult {
	return vehicle.ExtractionResult{ImageURL: url, LicenseNumber: number, Jurisdiction: "Lagos", Found: true, Status: 200}
}

func plainResult(url string) vehicle.ExtractionResult {
	return vehicle.ExtractionResult{ImageURL: url, Status: 201, Message: plate.NoLicenseMessage}
}

func agreeingResults(number string) []vehicle.ExtractionResult {
	return []vehicle.ExtractionResult{
		plateResult("u0", number),
		plateResult("u1", number),
		plainResult("u2"),
		plainResult("u3"),
		plainResult("u4"),
		plainResult("u5"),
	}
}

func existingVehicle() *vehicle.Record {
	return &vehicle.Record{
		ID:                    "car-1",
		OwnerID:               "owner-1",
		DeclaredLicenseNumber: "KJA-345AB",
		VerifiedLicenseNumber: "KJA-345AB",
		Photos:                [vehicle.PhotoCount]string{"p0", "p1", "p2", "p3", "p4", "p5"},
		Status:                vehicle.StatusAvailable,
	}
}
