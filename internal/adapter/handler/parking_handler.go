package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/services"
)

// ParkingHandler serves the user-facing routes.
type ParkingHandler struct {
	occupancy *services.OccupancyService
	lots      *services.LotService
	analytics *services.AnalyticsService
	log       *zap.Logger
}

func NewParkingHandler(occupancy *services.OccupancyService, lots *services.LotService, analytics *services.AnalyticsService, log *zap.Logger) *ParkingHandler {
	return &ParkingHandler{
		occupancy: occupancy,
		lots:      lots,
		analytics: analytics,
		log:       log.Named("parking_handler"),
	}
}

func (h *ParkingHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lots, err := h.lots.ListAvailableLots(ctx)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toAvailableLotResponses(lots))
}

// BrowseLots serves the unauthenticated lot listing.
func (h *ParkingHandler) BrowseLots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lots, err := h.lots.BrowseLots(ctx, includeSpots(r))
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toLotResponses(lots))
}

func (h *ParkingHandler) BrowseLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lotID, ok := lotIDParam(w, r, h.log)
	if !ok {
		return
	}

	lot, err := h.lots.BrowseLot(ctx, lotID, includeSpots(r))
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toLotResponse(*lot))
}

func (h *ParkingHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	active, err := h.occupancy.CurrentStatus(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	resp := StatusResponse{HasActive: active != nil}
	if active != nil {
		resp.Reservation = toActiveResponse(active)
	}

	WriteSuccess(ctx, w, http.StatusOK, "", resp)
}

func (h *ParkingHandler) Park(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	var req ParkRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	lotID, err := uuid.Parse(req.LotID)
	if err != nil {
		writeServiceError(ctx, w, h.log, domain.NewValidationError("lot_id", "must be a valid id"))
		return
	}

	active, err := h.occupancy.Allocate(ctx, identity, services.AllocateRequest{
		LotID:         lotID,
		VehicleNumber: req.VehicleNumber,
	})
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusCreated, "Vehicle parked successfully", toActiveResponse(active))
}

func (h *ParkingHandler) Release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	var req ReleaseRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	result, err := h.occupancy.Release(ctx, identity, services.ReleaseRequest{Remarks: req.Remarks})
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "Spot released successfully", ReleaseResponse{
		ReservationResponse: toReservationResponse(result.Reservation),
		BillableHours:       result.BillableHours,
	})
}

func (h *ParkingHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	records, err := h.occupancy.History(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", toRecordResponses(records, false))
}

func (h *ParkingHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	dashboard, err := h.analytics.UserDashboard(ctx, identity)
	if err != nil {
		writeServiceError(ctx, w, h.log, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "", dashboard)
}
