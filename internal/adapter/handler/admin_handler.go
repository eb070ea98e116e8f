package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/services"
)

// AdminHandler serves lot administration, listings, analytics and exports.
type AdminHandler struct {
	lots      *services.LotService
	analytics *services.AnalyticsService
	reports   *services.ReportService
	log       *zap.Logger
}

func NewAdminHandler(lots *services.LotService, analytics *services.AnalyticsService, reports *services.ReportService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		lots:      lots,
		analytics: analytics,
		reports:   reports,
		log:       log.Named("admin_handler"),
	}
}

func (h *AdminHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	var req CreateLotRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	lot, err := h.lots.CreateLot(ctx, identity, domain.CreateLotInput{
		Name:          req.PrimeLocationName,
		Address:       req.Address,
		PinCode:       req.PinCode,
		PricePerHour:  req.PricePerHour,
		NumberOfSpots: req.NumberOfSpots,
	})
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusCreated, "Parking lot created successfully", toLotResponse(*lot))
}

func (h *AdminHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	lots, err := h.lots.ListLots(ctx, identity, includeSpots(r))
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toLotResponses(lots))
}

func (h *AdminHandler) GetLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	lotID, ok := h.lotID(w, r)
	if !ok {
		return
	}

	lot, err := h.lots.GetLot(ctx, identity, lotID, includeSpots(r))
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toLotResponse(*lot))
}

func (h *AdminHandler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	lotID, ok := h.lotID(w, r)
	if !ok {
		return
	}

	var req UpdateLotRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	lot, err := h.lots.UpdateLot(ctx, identity, lotID, domain.UpdateLotInput{
		Name:          req.PrimeLocationName,
		Address:       req.Address,
		PinCode:       req.PinCode,
		PricePerHour:  req.PricePerHour,
		NumberOfSpots: req.NumberOfSpots,
	})
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "Parking lot updated successfully", toLotResponse(*lot))
}

func (h *AdminHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	lotID, ok := h.lotID(w, r)
	if !ok {
		return
	}

	if err := h.lots.DeleteLot(ctx, identity, lotID); err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "Parking lot deleted successfully", nil)
}

func (h *AdminHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	lotID, ok := h.lotID(w, r)
	if !ok {
		return
	}

	spots, err := h.lots.ListSpots(ctx, identity, lotID)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toSpotResponses(spots))
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	users, err := h.lots.ListUsers(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toUserResponses(users))
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	records, err := h.lots.ListReservations(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toRecordResponses(records, true))
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	dashboard, err := h.analytics.AdminDashboard(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", dashboard)
}

func (h *AdminHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	mismatches, err := h.lots.CheckConsistency(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	if mismatches == nil {
		mismatches = []domain.Mismatch{}
	}

	WriteSuccess(ctx, w, http.StatusOK, "", map[string]any{
		"consistent": len(mismatches) == 0,
		"mismatches": mismatches,
	})
}

func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	taskID, err := h.reports.RequestExport(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusAccepted, "Export started", ExportResponse{TaskID: taskID})
}

func (h *AdminHandler) lotID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return lotIDParam(w, r, h.log)
}

func lotIDParam(w http.ResponseWriter, r *http.Request, log *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, log, domain.NewValidationError("id", "must be a valid id"))
		return uuid.Nil, false
	}
	return id, true
}

func includeSpots(r *http.Request) bool {
	switch r.URL.Query().Get("include_spots") {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
