package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"lofshare/internal/dashboard/service"
	apperrors "lofshare/pkg/errors"
	httputil "lofshare/pkg/http"
	"lofshare/pkg/logger"
	"lofshare/pkg/middleware"
)

type DashboardHandler struct {
	service service.DashboardService
	log     *logger.Logger
}

func NewDashboardHandler(service service.DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, log: log}
}

func (h *DashboardHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/dashboard", h.MonthlyReport)
}

func (h *DashboardHandler) MonthlyReport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	month, err := httputil.ExtractMonth(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.MonthlyReport(r.Context(), userID, middleware.GetUserEmail(r.Context()), month)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, report)
}
