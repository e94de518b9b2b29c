package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-intake-service/internal/domain/rental"
	"plate-intake-service/internal/domain/vehicle"
	"plate-intake-service/internal/service"
	"plate-intake-service/internal/upload"
)

const maxPhotoBytes = 10 << 20

type Handler struct {
	vehicleService *service.VehicleService
	requestService *service.RequestService
	log            zerolog.Logger
}

func NewHandler(vehicleService *service.VehicleService, requestService *service.RequestService, log zerolog.Logger) *Handler {
	return &Handler{
		vehicleService: vehicleService,
		requestService: requestService,
		log:            log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/car/:id", h.getCar)
		public.GET("/cars", h.listCars)
		public.GET("/owners/:ownerId/cars", h.listOwnerCarsPublic)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/car/upload", h.addCar)
		protected.PATCH("/car/photo", h.updateCarPhoto)
		protected.PATCH("/car/update", h.updateCarInformation)
		protected.PATCH("/car/status", h.updateCarStatus)
		protected.DELETE("/car/:id", h.removeCar)
		protected.POST("/upload/one", h.uploadOne)
		protected.GET("/owner/cars", h.listOwnerCarsPrivate)
		protected.POST("/request", h.createRequest)
		protected.PATCH("/request", h.updateRequestStatus)
	}
}

type addCarForm struct {
	DeclaredLicenseNumber string `form:"declaredLicenseNumber"`
	Model                 string `form:"model"`
	Year                  int    `form:"year"`
	Mileage               int    `form:"mileage"`
	Color                 string `form:"color"`
	Leather               bool   `form:"leather"`
	Location              string `form:"location"`
	Purpose               string `form:"purpose"`
	Terms                 string `form:"terms"`
	Interval              string `form:"interval"`
	Remittance            int    `form:"remittance"`
	ContractDuration      string `form:"contractDuration"`
}

func (h *Handler) addCar(c *gin.Context) {
	var form addCarForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	// Photos are collected in slot order; a missing slot shortens the batch.
	photos := make([]upload.Photo, 0, vehicle.PhotoCount)
	for _, slot := range vehicle.Slots() {
		fh, err := c.FormFile(slot.String())
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
			return
		}
		photo, err := readPhoto(fh)
		if err != nil {
			h.fail(c, err)
			return
		}
		photos = append(photos, photo)
	}

	reg := service.Registration{
		OwnerID:               requesterID(c),
		DeclaredLicenseNumber: form.DeclaredLicenseNumber,
		Details: vehicle.Details{
			Model:            form.Model,
			Year:             form.Year,
			Mileage:          form.Mileage,
			Color:            form.Color,
			Leather:          form.Leather,
			Location:         form.Location,
			Purpose:          form.Purpose,
			Terms:            form.Terms,
			Interval:         form.Interval,
			Remittance:       form.Remittance,
			ContractDuration: form.ContractDuration,
		},
	}

	rec, err := h.vehicleService.AddVehicle(c.Request.Context(), photos, reg)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(http.StatusCreated, rec))
}

func (h *Handler) updateCarPhoto(c *gin.Context) {
	carID := strings.TrimSpace(c.PostForm("carId"))
	slot, err := vehicle.ParseSlot(c.PostForm("slot"))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		h.fail(c, fmt.Errorf("%w: image is required", service.ErrValidation))
		return
	}
	photo, err := readPhoto(fh)
	if err != nil {
		h.fail(c, err)
		return
	}

	rec, err := h.vehicleService.UpdateSlot(c.Request.Context(), carID, slot, photo, requesterID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(http.StatusOK, rec))
}

type updateCarRequest struct {
	CarID string `json:"carId"`
	vehicle.Fields
}

func (h *Handler) updateCarInformation(c *gin.Context) {
	var req updateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	rec, err := h.vehicleService.UpdateInfo(c.Request.Context(), req.CarID, req.Fields, requesterID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(http.StatusOK, rec))
}

type updateStatusRequest struct {
	CarID  string `json:"carId"`
	Status string `json:"status"`
}

func (h *Handler) updateCarStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	rec, err := h.vehicleService.UpdateStatus(c.Request.Context(), req.CarID, vehicle.Status(req.Status), requesterID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(http.StatusOK, rec))
}

func (h *Handler) removeCar(c *gin.Context) {
	if err := h.vehicleService.Delete(c.Request.Context(), c.Param("id"), requesterID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse(http.StatusOK, "car removed successfully"))
}

func (h *Handler) uploadOne(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		h.fail(c, fmt.Errorf("%w: image is required", service.ErrValidation))
		return
	}
	photo, err := readPhoto(fh)
	if err != nil {
		h.fail(c, err)
		return
	}

	url, err := h.vehicleService.UploadOne(c.Request.Context(), photo)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"status":   http.StatusOK,
		"message":  "uploaded successfully",
		"imageUrl": url,
	})
}

func (h *Handler) getCar(c *gin.Context) {
	rec, err := h.vehicleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(http.StatusOK, rec))
}

func (h *Handler) listCars(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	recs, err := h.vehicleService.List(c.Request.Context(), strings.TrimSpace(c.Query("status")), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(http.StatusOK, recs))
}

func (h *Handler) listOwnerCarsPrivate(c *gin.Context) {
	h.listOwnerCars(c, requesterID(c), false)
}

func (h *Handler) listOwnerCarsPublic(c *gin.Context) {
	h.listOwnerCars(c, c.Param("ownerId"), true)
}

func (h *Handler) listOwnerCars(c *gin.Context, ownerID string, onlyAvailable bool) {
	recs, err := h.vehicleService.ListByOwner(c.Request.Context(), ownerID, onlyAvailable)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(http.StatusOK, recs))
}

type createRequestBody struct {
	CarID string `json:"carId"`
}

func (h *Handler) createRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	req, err := h.requestService.Create(c.Request.Context(), strings.TrimSpace(body.CarID), requesterID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(http.StatusCreated, req))
}

type updateRequestBody struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

func (h *Handler) updateRequestStatus(c *gin.Context) {
	var body updateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	req, err := h.requestService.UpdateStatus(c.Request.Context(), strings.TrimSpace(body.RequestID), rental.Status(body.Status), requesterID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(http.StatusOK, req))
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := service.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	message := err.Error()
	switch {
	case errors.Is(err, service.ErrIncompleteBatch):
		message = service.ErrIncompleteBatch.Error()
	case errors.Is(err, service.ErrUpstream):
		message = service.ErrUpstream.Error()
	case status == http.StatusInternalServerError:
		message = "internal error"
	}
	c.JSON(status, errorResponse(status, message))
}

func readPhoto(fh *multipart.FileHeader) (upload.Photo, error) {
	if fh.Size > maxPhotoBytes {
		return upload.Photo{}, fmt.Errorf("%w: %s exceeds %d bytes", service.ErrValidation, fh.Filename, maxPhotoBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return upload.Photo{}, fmt.Errorf("%w: open %s: %v", service.ErrValidation, fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		return upload.Photo{}, fmt.Errorf("%w: read %s: %v", service.ErrValidation, fh.Filename, err)
	}
	return upload.Photo{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func successResponse(status int, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"status":  status,
		"data":    data,
	}
}

func messageResponse(status int, message string) gin.H {
	return gin.H{
		"success": true,
		"status":  status,
		"message": message,
	}
}

func errorResponse(status int, message string) gin.H {
	return gin.H{
		"success": false,
		"status":  status,
		"message": message,
	}
}
