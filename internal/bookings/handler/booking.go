package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lofshare/internal/bookings/service"
	apperrors "lofshare/pkg/errors"
	httputil "lofshare/pkg/http"
	"lofshare/pkg/logger"
	"lofshare/pkg/middleware"
	"lofshare/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PUT("/api/v1/bookings/id/:id", h.Update)
	router.PATCH("/api/v1/bookings/id/:id/status", h.UpdateStatus)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
	router.GET("/api/v1/bookings/property/:propertyId", h.ListByProperty)
	router.GET("/api/v1/bookings/property/:propertyId/blocked-dates", h.BlockedDates)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.GetUserID(r.Context())
	email := middleware.GetUserEmail(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	// The requester is always the authenticated caller.
	booking.UserID = userID
	if booking.UserName == "" {
		booking.UserName = middleware.GetDisplayName(r.Context())
	}

	if err := h.service.Create(r.Context(), &booking, email); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, booking)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var updates model.BookingUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	if err := h.service.Update(r.Context(), ps.ByName("id"), userID, &updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "Booking updated successfully"})
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	if err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), userID, payload.Status); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "Booking status updated"})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), ps.ByName("id"), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) ListByProperty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bookings, count, err := h.service.ListByProperty(r.Context(), ps.ByName("propertyId"), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, count, limit, offset)
}

func (h *BookingHandler) BlockedDates(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ranges, err := h.service.BlockedDates(r.Context(), ps.ByName("propertyId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, ranges)
}
