package handler

import (
	"encoding/json"
	"net/http"

	"lofshare/internal/properties/service"
	apperrors "lofshare/pkg/errors"
	httputil "lofshare/pkg/http"
	"lofshare/pkg/logger"
	"lofshare/pkg/middleware"
	"lofshare/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PropertyHandler struct {
	service service.PropertyService
	log     *logger.Logger
}

func NewPropertyHandler(service service.PropertyService, log *logger.Logger) *PropertyHandler {
	return &PropertyHandler{
		service: service,
		log:     log,
	}
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var property model.Property
	if err := json.NewDecoder(r.Body).Decode(&property); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	property.OwnerID = userID
	if email := middleware.GetUserEmail(r.Context()); email != "" {
		property.AllowedEmails = append(property.AllowedEmails, email)
	}

	if err := h.service.Create(r.Context(), &property); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, property)
}

func (h *PropertyHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	property, err := h.service.GetByID(r.Context(), ps.ByName("id"),
		middleware.GetUserID(r.Context()), middleware.GetUserEmail(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, property)
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	properties, err := h.service.ListForUser(r.Context(),
		middleware.GetUserID(r.Context()), middleware.GetUserEmail(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, properties)
}

type memberRequest struct {
	Email string `json:"email"`
}

func (h *PropertyHandler) AddMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	err := h.service.AddMember(r.Context(), ps.ByName("id"), middleware.GetUserID(r.Context()), req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PropertyHandler) RemoveMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.service.RemoveMember(r.Context(), ps.ByName("id"), middleware.GetUserID(r.Context()), ps.ByName("email"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

type adminRequest struct {
	UserID string `json:"user_id"`
}

func (h *PropertyHandler) AddAdmin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	err := h.service.AddAdmin(r.Context(), ps.ByName("id"), middleware.GetUserID(r.Context()), req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PropertyHandler) RemoveAdmin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.service.RemoveAdmin(r.Context(), ps.ByName("id"), middleware.GetUserID(r.Context()), ps.ByName("user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PropertyHandler) UpdateSettings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var settings model.PropertySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	err := h.service.UpdateSettings(r.Context(), ps.ByName("id"), middleware.GetUserID(r.Context()), &settings)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PropertyHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/properties", h.Create)
	router.GET("/api/v1/properties", h.List)
	router.GET("/api/v1/properties/id/:id", h.GetByID)
	router.PUT("/api/v1/properties/id/:id/settings", h.UpdateSettings)
	router.POST("/api/v1/properties/id/:id/members", h.AddMember)
	router.DELETE("/api/v1/properties/id/:id/members/:email", h.RemoveMember)
	router.POST("/api/v1/properties/id/:id/admins", h.AddAdmin)
	router.DELETE("/api/v1/properties/id/:id/admins/:user_id", h.RemoveAdmin)
}
