package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

// BookingHandler exposes the booking lifecycle endpoints.  Transitions run
// through the workflow engine; listing and detail reads go straight to the
// repositories.  JWT and role middleware run before every method.
type BookingHandler struct {
	Engine   *workflow.Engine
	Bookings *repository.BookingRepo
	Claims   *repository.WarrantyRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies must be
// non-nil.
func NewBookingHandler(engine *workflow.Engine, bookings *repository.BookingRepo, claims *repository.WarrantyRepo) *BookingHandler {
	if engine == nil || bookings == nil || claims == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Bookings: bookings, Claims: claims}
}

// ----- DTOs -----

type createBookingReq struct {
	ServiceID     uint64  `json:"service_id"`
	ProviderID    *uint64 `json:"provider_id"`
	SlotDate      string  `json:"slot_date"`
	SlotStart     string  `json:"slot_start"`
	SlotEnd       string  `json:"slot_end"`
	Address       string  `json:"address"`
	PriceCents    uint32  `json:"price_cents"`
	PaymentMethod string  `json:"payment_method"`
}

type extraServiceResp struct {
	ID         uint64 `json:"id"`
	ServiceID  uint64 `json:"service_id"`
	Title      string `json:"title"`
	PriceCents uint32 `json:"price_cents"`
	Status     string `json:"status"`
	AddedAt    string `json:"added_at"`
}

type bookingResp struct {
	ID                uint64             `json:"id"`
	ClientID          uint64             `json:"client_id"`
	ProviderID        *uint64            `json:"provider_id,omitempty"`
	ServiceID         uint64             `json:"service_id"`
	Status            string             `json:"status"`
	PriceCents        uint32             `json:"price_cents"`
	SlotDate          string             `json:"slot_date"`
	SlotStart         string             `json:"slot_start"`
	SlotEnd           string             `json:"slot_end"`
	Address           string             `json:"address"`
	PaymentMethod     string             `json:"payment_method"`
	CancelReason      *string            `json:"cancel_reason,omitempty"`
	WarrantySlip      *string            `json:"warranty_slip,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	WarrantyExpiresAt *time.Time         `json:"warranty_expires_at,omitempty"`
	ExtraServices     []extraServiceResp `json:"extra_services,omitempty"`
	WarrantyRequests  []uint64           `json:"warranty_requests,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:                b.ID,
		ClientID:          b.ClientID,
		ProviderID:        b.ProviderID,
		ServiceID:         b.ServiceID,
		Status:            string(b.Status),
		PriceCents:        b.PriceCents,
		SlotDate:          b.SlotDate.Format("2006-01-02"),
		SlotStart:         b.SlotStart,
		SlotEnd:           b.SlotEnd,
		Address:           b.Address,
		PaymentMethod:     string(b.PaymentMethod),
		CancelReason:      b.CancelReason,
		WarrantySlip:      b.WarrantySlip,
		CompletedAt:       b.CompletedAt,
		WarrantyExpiresAt: b.WarrantyExpiresAt,
		CreatedAt:         b.CreatedAt,
	}
}

func toExtraResp(items []model.ExtraService) []extraServiceResp {
	out := make([]extraServiceResp, 0, len(items))
	for _, it := range items {
		out = append(out, extraServiceResp{
			ID:         it.ID,
			ServiceID:  it.ServiceID,
			Title:      it.Title,
			PriceCents: it.PriceCents,
			Status:     string(it.Status),
			AddedAt:    it.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// ----- lifecycle endpoints -----

// Create handles POST /v1/bookings (client).
func (h *BookingHandler) Create(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Engine.CreateBooking(c.Request().Context(), act, workflow.CreateBookingInput{
		ServiceID:     req.ServiceID,
		ProviderID:    req.ProviderID,
		SlotDate:      req.SlotDate,
		SlotStart:     req.SlotStart,
		SlotEnd:       req.SlotEnd,
		Address:       req.Address,
		PriceCents:    req.PriceCents,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Assign handles POST /v1/bookings/:id/assign (admin).
func (h *BookingHandler) Assign(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		ProviderID uint64 `json:"provider_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Engine.AssignProvider(c.Request().Context(), act, id, req.ProviderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Accept handles POST /v1/bookings/:id/accept (provider).
func (h *BookingHandler) Accept(c echo.Context) error {
	return h.simpleTransition(c, h.Engine.AcceptBooking)
}

// Start handles POST /v1/bookings/:id/in_progress (provider).
func (h *BookingHandler) Start(c echo.Context) error {
	return h.simpleTransition(c, h.Engine.StartBooking)
}

func (h *BookingHandler) simpleTransition(c echo.Context, fn func(ctx context.Context, act workflow.Actor, id uint64) (model.Booking, error)) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := fn(c.Request().Context(), act, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Reject handles POST /v1/bookings/:id/reject (provider).
func (h *BookingHandler) Reject(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Engine.RejectBooking(c.Request().Context(), act, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel handles POST /v1/bookings/:id/cancel (client/provider/admin).
func (h *BookingHandler) Cancel(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Engine.CancelBooking(c.Request().Context(), act, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Complete handles POST /v1/bookings/:id/complete (provider).
func (h *BookingHandler) Complete(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		WarrantySlip *string `json:"warranty_slip"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Engine.CompleteBooking(c.Request().Context(), act, id, req.WarrantySlip)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// AddExtra handles POST /v1/bookings/:id/extra-services (provider).
func (h *BookingHandler) AddExtra(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		ServiceID  uint64  `json:"service_id"`
		PriceCents *uint32 `json:"price_cents"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	item, err := h.Engine.AddExtraService(c.Request().Context(), act, id, req.ServiceID, req.PriceCents)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toExtraResp([]model.ExtraService{item})[0])
}

// ConfirmExtras handles POST /v1/bookings/:id/extra-services/confirm
// (client).  No body; confirms every pending item in one batch.
func (h *BookingHandler) ConfirmExtras(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	confirmed, err := h.Engine.ConfirmExtraServices(c.Request().Context(), act, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"confirmed": toExtraResp(confirmed)})
}

// ----- read endpoints -----

// List handles GET /v1/bookings, scoped by the caller's role.
func (h *BookingHandler) List(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	var bookings []model.Booking
	switch act.Role {
	case model.RoleAdmin:
		bookings, err = h.Bookings.ListAll(ctx)
	case model.RoleProvider:
		bookings, err = h.Bookings.ListByProvider(ctx, act.ID)
	default:
		bookings, err = h.Bookings.ListByClient(ctx, act.ID)
	}
	if err != nil {
		return respondError(c, err)
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get handles GET /v1/bookings/:id.  Clients see their own bookings,
// providers their assignments, admins everything.
func (h *BookingHandler) Get(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	allowed := act.Role == model.RoleAdmin ||
		act.ID == b.ClientID ||
		(b.ProviderID != nil && act.ID == *b.ProviderID)
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	resp := toBookingResp(b)
	if extras, err := h.Bookings.ListExtras(ctx, id); err == nil {
		resp.ExtraServices = toExtraResp(extras)
	}
	if claimIDs, err := h.Claims.ListIDsByBooking(ctx, id); err == nil {
		resp.WarrantyRequests = claimIDs
	}
	return c.JSON(http.StatusOK, resp)
}
