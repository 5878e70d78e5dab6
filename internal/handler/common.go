package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

// getUserID extracts the authenticated user's id from the context, where
// JWTAuth stored the token's "sub" claim.  JSON numbers arrive as float64.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case string:
		return strconv.ParseUint(v, 10, 64)
	case uint64:
		return v, nil
	}
	return 0, errors.New("missing user id")
}

// getRole extracts the role claim stored by JWTAuth.
func getRole(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

// actor builds the workflow actor for the current request.  A missing or
// malformed identity yields a 401 HTTPError; nothing is written here, so
// callers can rely on a non-nil error to short-circuit.
func actor(c echo.Context) (workflow.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return workflow.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return workflow.Actor{ID: id, Role: getRole(c)}, nil
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// respondError maps workflow and repository errors onto the HTTP error
// taxonomy: validation and invalid-state are 400, missing entities 404,
// relationship/role violations 403, stale-version writes 409.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, workflow.ErrValidation),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrWarrantyExpired),
		errors.Is(err, workflow.ErrNothingPending):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, workflow.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrClaimNotFound),
		errors.Is(err, repository.ErrNotificationNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrServiceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking changed concurrently, reload and retry"})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
