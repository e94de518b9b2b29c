package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plate-intake-service/internal/domain/vehicle"
	"plate-intake-service/internal/repository"
	"plate-intake-service/internal/upload"
)

func testRegistration() Registration {
	return Registration{
		OwnerID:               "owner-1",
		DeclaredLicenseNumber: "kja-345ab",
		Details:               vehicle.Details{Model: "Corolla", Year: 2012, Mileage: 40000, Location: "Ikeja", Terms: "weekly"},
	}
}

func TestRegister_CreatesVehicle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(newFakeUploader(), repo)

	rec, err := svc.Register(context.Background(), agreeingResults("KJA-345AB"), testRegistration())
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "car-new", rec.ID)
	assert.Equal(t, "KJA-345AB", rec.VerifiedLicenseNumber)
	assert.Equal(t, "KJA-345AB", rec.DeclaredLicenseNumber)
	assert.Equal(t, "Lagos", rec.Jurisdiction)
	assert.Equal(t, [vehicle.PhotoCount]string{"u0", "u1", "u2", "u3", "u4", "u5"}, rec.Photos)
	assert.Equal(t, vehicle.StatusAvailable, rec.Status)
	assert.Equal(t, "for rent", rec.Purpose)
	assert.Equal(t, []string{"KJA-345AB"}, repo.verifiedLook)
	assert.Equal(t, []string{"KJA-345AB"}, repo.declaredLook)
}

func TestRegister_ConsensusMismatch(t *testing.T) {
	tests := []struct {
		name    string
		results func() []vehicle.ExtractionResult
	}{
		{name: "numbers differ", results: func() []vehicle.ExtractionResult {
			r := agreeingResults("KJA-345AB")
			r[1].LicenseNumber = "KJA-345AC"
			return r
		}},
		{name: "front not found", results: func() []vehicle.ExtractionResult {
			r := agreeingResults("KJA-345AB")
			r[0] = plainResult("u0")
			return r
		}},
		{name: "both not found", results: func() []vehicle.ExtractionResult {
			r := agreeingResults("KJA-345AB")
			r[0] = plainResult("u0")
			r[1] = plainResult("u1")
			return r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := newTestService(newFakeUploader(), repo)

			_, err := svc.Register(context.Background(), tt.results(), testRegistration())

			assert.ErrorIs(t, err, ErrConsensusMismatch)
			assert.Equal(t, http.StatusBadRequest, StatusCode(err))
			assert.Empty(t, repo.created)
			assert.Empty(t, repo.verifiedLook)
		})
	}
}

func TestRegister_IncompleteBatch(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(newFakeUploader(), repo)

	_, err := svc.Register(context.Background(), agreeingResults("KJA-345AB")[:5], testRegistration())

	assert.ErrorIs(t, err, ErrIncompleteBatch)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Empty(t, repo.created)
}

func TestRegister_Duplicate(t *testing.T) {
	tests := []struct {
		name      string
		seed      *vehicle.Record
		createErr error
		want      error
	}{
		{
			name: "verified number taken",
			seed: &vehicle.Record{ID: "a", VerifiedLicenseNumber: "KJA-345AB", DeclaredLicenseNumber: "OTHER", Photos: [6]string{"x"}},
			want: ErrDuplicateRegistration,
		},
		{
			name: "declared number taken",
			seed: &vehicle.Record{ID: "b", VerifiedLicenseNumber: "OTHER", DeclaredLicenseNumber: "KJA-345AB", Photos: [6]string{"x"}},
			want: ErrDuplicateRegistration,
		},
		{
			name:      "match without photos falls through to the unique index",
			seed:      &vehicle.Record{ID: "c", VerifiedLicenseNumber: "KJA-345AB", DeclaredLicenseNumber: "OTHER"},
			createErr: fmt.Errorf("%w: ux_vehicles_verified_license", repository.ErrDuplicate),
			want:      ErrDuplicateRegistration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.put(tt.seed)
			repo.createErr = tt.createErr
			svc := newTestService(newFakeUploader(), repo)

			_, err := svc.Register(context.Background(), agreeingResults("KJA-345AB"), testRegistration())

			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, repo.created)
			assert.Len(t, repo.declaredLook, 1, "both lookups run")
		})
	}
}

func TestRegister_UniqueIndexBackstop(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = fmt.Errorf("%w: ux_vehicles_verified_license", repository.ErrDuplicate)
	svc := newTestService(newFakeUploader(), repo)

	_, err := svc.Register(context.Background(), agreeingResults("KJA-345AB"), testRegistration())

	assert.ErrorIs(t, err, ErrDuplicateRegistration)
}

func TestRegister_StorageErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = errBoom
	svc := newTestService(newFakeUploader(), repo)

	_, err := svc.Register(context.Background(), agreeingResults("KJA-345AB"), testRegistration())
	assert.ErrorIs(t, err, ErrStorage)

	repo = newFakeRepo()
	repo.createErr = errBoom
	svc = newTestService(newFakeUploader(), repo)

	_, err = svc.Register(context.Background(), agreeingResults("KJA-345AB"), testRegistration())
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestRegister_RequiresDeclaredNumber(t *testing.T) {
	svc := newTestService(newFakeUploader(), newFakeRepo())
	reg := testRegistration()
	reg.DeclaredLicenseNumber = "  "

	_, err := svc.Register(context.Background(), agreeingResults("KJA-345AB"), reg)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddVehicle_EndToEnd(t *testing.T) {
	u := newFakeUploader()
	u.lines["front"] = []string{"KJA-345AB", "LAGOS", "NIGERIA"}
	u.lines["rear"] = []string{"KJA-345AB", "LAGOS"}
	repo := newFakeRepo()
	svc := newTestService(u, repo)

	rec, err := svc.AddVehicle(context.Background(), intakePhotos(), testRegistration())
	require.NoError(t, err)

	assert.Equal(t, "KJA-345AB", rec.VerifiedLicenseNumber)
	for i, slot := range vehicle.Slots() {
		assert.Equal(t, "https://img/"+slot.String(), rec.Photos[i])
	}
}

func TestAddVehicle_ValidatesBeforeUploading(t *testing.T) {
	u := newFakeUploader()
	svc := newTestService(u, newFakeRepo())
	reg := testRegistration()
	reg.OwnerID = ""

	_, err := svc.AddVehicle(context.Background(), intakePhotos(), reg)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, u.callCount())
}

func TestUpdateSlot_NonPlateSlot(t *testing.T) {
	u := newFakeUploader()
	repo := newFakeRepo()
	repo.put(existingVehicle())
	svc := newTestService(u, repo)

	rec, err := svc.UpdateSlot(context.Background(), "car-1", vehicle.SlotRight, upload.Photo{Name: "new-right", Data: []byte("x")}, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, []slotUpdate{{id: "car-1", index: 3, url: "https://img/new-right"}}, repo.slotUpdates)
	assert.Equal(t, [vehicle.PhotoCount]string{"p0", "p1", "p2", "https://img/new-right", "p4", "p5"}, rec.Photos)
	assert.False(t, u.ocrReqs["new-right"])
}

func TestUpdateSlot_PlateSlotMatches(t *testing.T) {
	u := newFakeUploader()
	u.lines["new-rear"] = []string{"KJA-345AB", "LAGOS"}
	repo := newFakeRepo()
	repo.put(existingVehicle())
	svc := newTestService(u, repo)

	rec, err := svc.UpdateSlot(context.Background(), "car-1", vehicle.SlotRear, upload.Photo{Name: "new-rear", Data: []byte("x")}, "owner-1")
	require.NoError(t, err)

	assert.True(t, u.ocrReqs["new-rear"])
	assert.Equal(t, "https://img/new-rear", rec.Photos[vehicle.SlotRear])
	assert.Len(t, repo.slotUpdates, 1)
}

func TestUpdateSlot_PlateSlotRejected(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{name: "different car", lines: []string{"KJA-345AC", "LAGOS"}},
		{name: "unreadable plate", lines: []string{"blurry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newFakeUploader()
			u.lines["new-front"] = tt.lines
			repo := newFakeRepo()
			repo.put(existingVehicle())
			svc := newTestService(u, repo)

			_, err := svc.UpdateSlot(context.Background(), "car-1", vehicle.SlotFront, upload.Photo{Name: "new-front", Data: []byte("x")}, "owner-1")

			assert.ErrorIs(t, err, ErrPlateMismatch)
			assert.Empty(t, repo.slotUpdates)
			stored, _ := repo.FindByID(context.Background(), "car-1")
			assert.Equal(t, "p0", stored.Photos[vehicle.SlotFront])
		})
	}
}

func TestUpdateSlot_Guards(t *testing.T) {
	photo := upload.Photo{Name: "p", Data: []byte("x")}

	t.Run("not owner", func(t *testing.T) {
		repo := newFakeRepo()
		repo.put(existingVehicle())
		u := newFakeUploader()
		_, err := newTestService(u, repo).UpdateSlot(context.Background(), "car-1", vehicle.SlotLeft, photo, "intruder")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
		assert.Zero(t, u.callCount())
	})

	t.Run("not available", func(t *testing.T) {
		repo := newFakeRepo()
		v := existingVehicle()
		v.Status = vehicle.StatusRented
		repo.put(v)
		_, err := newTestService(newFakeUploader(), repo).UpdateSlot(context.Background(), "car-1", vehicle.SlotLeft, photo, "owner-1")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("missing vehicle", func(t *testing.T) {
		_, err := newTestService(newFakeUploader(), newFakeRepo()).UpdateSlot(context.Background(), "nope", vehicle.SlotLeft, photo, "owner-1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
	})

	t.Run("invalid slot", func(t *testing.T) {
		_, err := newTestService(newFakeUploader(), newFakeRepo()).UpdateSlot(context.Background(), "car-1", vehicle.Slot(9), photo, "owner-1")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("status changed before the slot write", func(t *testing.T) {
		repo := newFakeRepo()
		repo.put(existingVehicle())
		repo.updateErr = fmt.Errorf("%w: vehicle car-1", repository.ErrUnavailable)
		_, err := newTestService(newFakeUploader(), repo).UpdateSlot(context.Background(), "car-1", vehicle.SlotLeft, photo, "owner-1")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	})

	t.Run("owner changed before the slot write", func(t *testing.T) {
		repo := newFakeRepo()
		repo.put(existingVehicle())
		repo.updateErr = repository.ErrOwnerMismatch
		_, err := newTestService(newFakeUploader(), repo).UpdateSlot(context.Background(), "car-1", vehicle.SlotLeft, photo, "owner-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := newFakeRepo()
		repo.put(existingVehicle())
		repo.updateErr = errBoom
		_, err := newTestService(newFakeUploader(), repo).UpdateSlot(context.Background(), "car-1", vehicle.SlotLeft, photo, "owner-1")
		assert.ErrorIs(t, err, ErrStorage)
	})
}

func TestUpdateInfo(t *testing.T) {
	repo := newFakeRepo()
	repo.put(existingVehicle())
	svc := newTestService(newFakeUploader(), repo)
	model := "Camry"
	declared := "lnd 111xy"

	rec, err := svc.UpdateInfo(context.Background(), "car-1", vehicle.Fields{Model: &model, DeclaredLicenseNumber: &declared}, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, "Camry", rec.Model)
	assert.Equal(t, "LND111XY", rec.DeclaredLicenseNumber)
	assert.Equal(t, "KJA-345AB", rec.VerifiedLicenseNumber)
	require.Len(t, repo.fieldUpdates, 1)
	assert.Equal(t, "LND111XY", *repo.fieldUpdates[0].DeclaredLicenseNumber)
}

func TestUpdateInfo_Rejections(t *testing.T) {
	repo := newFakeRepo()
	repo.put(existingVehicle())
	repo.put(&vehicle.Record{ID: "car-2", OwnerID: "owner-2", VerifiedLicenseNumber: "LND-111XY", DeclaredLicenseNumber: "LND-111XY"})
	svc := newTestService(newFakeUploader(), repo)
	taken := "LND-111XY"
	same := "KJA-345AB"

	_, err := svc.UpdateInfo(context.Background(), "car-1", vehicle.Fields{DeclaredLicenseNumber: &taken}, "owner-1")
	assert.ErrorIs(t, err, ErrDuplicateRegistration)

	_, err = svc.UpdateInfo(context.Background(), "car-1", vehicle.Fields{DeclaredLicenseNumber: &same}, "owner-1")
	assert.NoError(t, err)

	_, err = svc.UpdateInfo(context.Background(), "car-1", vehicle.Fields{DeclaredLicenseNumber: &same}, "owner-2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.UpdateInfo(context.Background(), "car-1", vehicle.Fields{}, "owner-1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.put(existingVehicle())
	svc := newTestService(newFakeUploader(), repo)

	rec, err := svc.UpdateStatus(context.Background(), "car-1", vehicle.StatusUnavailable, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusUnavailable, rec.Status)
	assert.Equal(t, []vehicle.Status{vehicle.StatusUnavailable}, repo.statuses)

	_, err = svc.UpdateStatus(context.Background(), "car-1", vehicle.Status("scrapped"), "owner-1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	repo.put(existingVehicle())
	svc := newTestService(newFakeUploader(), repo)

	assert.ErrorIs(t, svc.Delete(context.Background(), "car-1", "owner-2"), ErrUnauthorized)
	require.NoError(t, svc.Delete(context.Background(), "car-1", "owner-1"))
	assert.Equal(t, []string{"car-1"}, repo.deleted)
}

func TestListings(t *testing.T) {
	repo := newFakeRepo()
	repo.put(existingVehicle())
	rented := existingVehicle()
	rented.ID, rented.VerifiedLicenseNumber, rented.DeclaredLicenseNumber = "car-2", "B", "B"
	rented.Status = vehicle.StatusRented
	repo.put(rented)
	svc := newTestService(newFakeUploader(), repo)

	all, err := svc.ListByOwner(context.Background(), "owner-1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	public, err := svc.ListByOwner(context.Background(), "owner-1", true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "car-1", public[0].ID)

	_, err = svc.List(context.Background(), "bogus", 10, 0)
	assert.ErrorIs(t, err, ErrValidation)

	listed, err := svc.List(context.Background(), "available", 500, -1)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	got, err := svc.Get(context.Background(), "car-2")
	require.NoError(t, err)
	assert.Equal(t, vehicle.StatusRented, got.Status)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("%w: x", ErrValidation)))
	assert.Equal(t, http.StatusBadRequest, StatusCode(ErrPlateMismatch))
	assert.Equal(t, http.StatusBadRequest, StatusCode(ErrUnavailable))
	assert.Equal(t, http.StatusBadGateway, StatusCode(ErrUpstream))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errBoom))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(ErrUnauthorized))
	assert.EqualError(t, ErrUnauthorized, "only the car owner can update this car")
}
