package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

// WarrantyHandler exposes the warranty claim lifecycle.  Claim creation
// accepts both JSON and multipart form bodies; attachment uploads happen
// elsewhere and arrive here as URLs.
type WarrantyHandler struct {
	Engine *workflow.Engine
	Claims *repository.WarrantyRepo
}

// NewWarrantyHandler constructs a WarrantyHandler.
func NewWarrantyHandler(engine *workflow.Engine, claims *repository.WarrantyRepo) *WarrantyHandler {
	if engine == nil || claims == nil {
		panic("nil dependency passed to NewWarrantyHandler")
	}
	return &WarrantyHandler{Engine: engine, Claims: claims}
}

type claimResp struct {
	ID              uint64     `json:"id"`
	BookingID       uint64     `json:"booking_id"`
	ClientID        uint64     `json:"client_id"`
	ProviderID      uint64     `json:"provider_id"`
	AssignedAgentID *uint64    `json:"assigned_agent_id,omitempty"`
	Status          string     `json:"status"`
	IssueDetails    string     `json:"issue_details"`
	AttachmentURLs  []string   `json:"attachment_urls,omitempty"`
	AdminNotes      *string    `json:"admin_notes,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toClaimResp(cl model.WarrantyClaim) claimResp {
	return claimResp{
		ID:              cl.ID,
		BookingID:       cl.BookingID,
		ClientID:        cl.ClientID,
		ProviderID:      cl.ProviderID,
		AssignedAgentID: cl.AssignedAgentID,
		Status:          string(cl.Status),
		IssueDetails:    cl.IssueDetails,
		AttachmentURLs:  cl.AttachmentURLs,
		AdminNotes:      cl.AdminNotes,
		ResolutionNotes: cl.ResolutionNotes,
		ResolvedAt:      cl.ResolvedAt,
		CreatedAt:       cl.CreatedAt,
	}
}

// Create handles POST /v1/warranty (client).
func (h *WarrantyHandler) Create(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	in, bad := bindClaimCreate(c)
	if bad != nil {
		return bad
	}
	cl, err := h.Engine.CreateClaim(c.Request().Context(), act, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toClaimResp(cl))
}

// bindClaimCreate reads the claim-creation fields from either a multipart
// form or a JSON body.
func bindClaimCreate(c echo.Context) (workflow.CreateClaimInput, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		bookingID, _ := strconv.ParseUint(c.FormValue("booking_id"), 10, 64)
		in := workflow.CreateClaimInput{
			BookingID:    bookingID,
			IssueDetails: c.FormValue("issue_details"),
		}
		if form, err := c.MultipartForm(); err == nil {
			in.AttachmentURLs = append(in.AttachmentURLs, form.Value["attachments"]...)
			// Uploaded files are stored by the media service; only the
			// resulting names are recorded on the claim.
			for _, f := range form.File["attachments"] {
				in.AttachmentURLs = append(in.AttachmentURLs, f.Filename)
			}
		}
		return in, nil
	}
	var req struct {
		BookingID      uint64   `json:"booking_id"`
		IssueDetails   string   `json:"issue_details"`
		AttachmentURLs []string `json:"attachment_urls"`
	}
	if err := c.Bind(&req); err != nil {
		return workflow.CreateClaimInput{}, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return workflow.CreateClaimInput{
		BookingID:      req.BookingID,
		IssueDetails:   req.IssueDetails,
		AttachmentURLs: req.AttachmentURLs,
	}, nil
}

// AdminAction handles PATCH /v1/warranty/:id/admin (admin).
func (h *WarrantyHandler) AdminAction(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid claim id"})
	}
	var req struct {
		Action          string  `json:"action"`
		AssignedAgentID *uint64 `json:"assigned_agent_id"`
		AdminNotes      *string `json:"admin_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	action, err := workflow.ParseAdminAction(req.Action)
	if err != nil {
		return respondError(c, err)
	}
	cl, err := h.Engine.AdminClaimAction(c.Request().Context(), act, id, workflow.AdminClaimInput{
		Action:          action,
		AssignedAgentID: req.AssignedAgentID,
		AdminNotes:      req.AdminNotes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toClaimResp(cl))
}

// AgentAction handles PATCH /v1/warranty/:id/agent (assigned agent).
func (h *WarrantyHandler) AgentAction(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid claim id"})
	}
	var req struct {
		Status          string  `json:"status"`
		ResolutionNotes *string `json:"resolution_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	action, err := workflow.ParseAgentAction(req.Status)
	if err != nil {
		return respondError(c, err)
	}
	cl, err := h.Engine.AgentClaimAction(c.Request().Context(), act, id, action, req.ResolutionNotes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toClaimResp(cl))
}

// List handles GET /v1/warranty (admin): every claim in the system.
func (h *WarrantyHandler) List(c echo.Context) error {
	claims, err := h.Claims.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": toClaimList(claims)})
}

// ListClient handles GET /v1/warranty/client: the caller's own claims.
func (h *WarrantyHandler) ListClient(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	claims, err := h.Claims.ListByClient(c.Request().Context(), act.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": toClaimList(claims)})
}

// ListAgent handles GET /v1/warranty/agent: claims assigned to the caller.
func (h *WarrantyHandler) ListAgent(c echo.Context) error {
	act, err := actor(c)
	if err != nil {
		return err
	}
	claims, err := h.Claims.ListByAgent(c.Request().Context(), act.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": toClaimList(claims)})
}

func toClaimList(claims []model.WarrantyClaim) []claimResp {
	out := make([]claimResp, 0, len(claims))
	for _, cl := range claims {
		out = append(out, toClaimResp(cl))
	}
	return out
}
