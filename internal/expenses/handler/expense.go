package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lofshare/internal/expenses/service"
	apperrors "lofshare/pkg/errors"
	httputil "lofshare/pkg/http"
	"lofshare/pkg/logger"
	"lofshare/pkg/middleware"
	"lofshare/pkg/model"
)

type ExpenseHandler struct {
	service service.ExpenseService
	log     *logger.Logger
}

func NewExpenseHandler(service service.ExpenseService, log *logger.Logger) *ExpenseHandler {
	return &ExpenseHandler{service: service, log: log}
}

func (h *ExpenseHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/expenses", h.CreateExpense)
	router.DELETE("/api/v1/expenses/id/:id", h.DeleteExpense)
	router.GET("/api/v1/expenses/property/:propertyId", h.ListExpenses)
	router.GET("/api/v1/expenses/property/:propertyId/payments", h.Payments)

	router.POST("/api/v1/tags", h.CreateTag)
	router.DELETE("/api/v1/tags/id/:id", h.DeleteTag)
	router.GET("/api/v1/tags/property/:propertyId", h.ListTags)

	router.POST("/api/v1/shares", h.UpsertShare)
	router.PUT("/api/v1/shares/id/:id", h.UpdateShare)
	router.DELETE("/api/v1/shares/id/:id", h.DeleteShare)
	router.GET("/api/v1/shares/property/:propertyId", h.ListShares)
}

func (h *ExpenseHandler) caller(r *http.Request, w http.ResponseWriter) (string, string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return "", "", false
	}
	return userID, middleware.GetUserEmail(r.Context()), true
}

// --- Expenses ---

func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	var expense model.SharedExpense
	if err := json.NewDecoder(r.Body).Decode(&expense); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	if err := h.service.CreateExpense(r.Context(), &expense, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, expense)
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	if err := h.service.DeleteExpense(r.Context(), ps.ByName("id"), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, email, ok := h.caller(r, w)
	if !ok {
		return
	}

	expenses, err := h.service.ListExpenses(r.Context(), ps.ByName("propertyId"), userID, email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, expenses)
}

func (h *ExpenseHandler) Payments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, email, ok := h.caller(r, w)
	if !ok {
		return
	}

	month, err := httputil.ExtractMonth(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Payments(r.Context(), ps.ByName("propertyId"), userID, email, month)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, report)
}

// --- Tags ---

func (h *ExpenseHandler) CreateTag(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	var tag model.MemberTag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	if err := h.service.CreateTag(r.Context(), &tag, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, tag)
}

func (h *ExpenseHandler) DeleteTag(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	if err := h.service.DeleteTag(r.Context(), ps.ByName("id"), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ExpenseHandler) ListTags(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, email, ok := h.caller(r, w)
	if !ok {
		return
	}

	tags, err := h.service.ListTags(r.Context(), ps.ByName("propertyId"), userID, email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, tags)
}

// --- Shares ---

func (h *ExpenseHandler) UpsertShare(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	var share model.MemberShare
	if err := json.NewDecoder(r.Body).Decode(&share); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	result, err := h.service.UpsertShare(r.Context(), &share, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if result.Created {
		httputil.WriteCreated(w, result)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *ExpenseHandler) UpdateShare(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	var update model.MemberShareUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	if err := h.service.UpdateShare(r.Context(), ps.ByName("id"), userID, &update); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "Share updated successfully"})
}

func (h *ExpenseHandler) DeleteShare(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, _, ok := h.caller(r, w)
	if !ok {
		return
	}

	if err := h.service.DeleteShare(r.Context(), ps.ByName("id"), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ExpenseHandler) ListShares(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, email, ok := h.caller(r, w)
	if !ok {
		return
	}

	shares, err := h.service.ListShares(r.Context(), ps.ByName("propertyId"), userID, email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, shares)
}
