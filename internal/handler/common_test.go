package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestActorFailsWithoutIdentity(t *testing.T) {
	c, _ := newTestContext()

	act, err := actor(c)
	if err == nil {
		t.Fatalf("actor returned %+v with nil error, must fail when no identity is on the context", act)
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Errorf("err = %v, want a 401 HTTPError", err)
	}
	// Nothing may be written here: the error travels up to Echo's error
	// handler, so a caller's err check always short-circuits the request.
	if c.Response().Committed {
		t.Error("actor wrote a response instead of returning the error")
	}
}

func TestActorReadsClaimsFromContext(t *testing.T) {
	c, _ := newTestContext()
	c.Set("user_id", float64(7)) // JWT claims decode JSON numbers as float64
	c.Set("role", "CLIENT")

	act, err := actor(c)
	if err != nil {
		t.Fatalf("actor: %v", err)
	}
	if act.ID != 7 || act.Role != "CLIENT" {
		t.Errorf("actor = %+v, want ID 7 role CLIENT", act)
	}
}

func TestGetUserID(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  uint64
		ok    bool
	}{
		{"float64 claim", float64(42), 42, true},
		{"string claim", "42", 42, true},
		{"uint64 claim", uint64(42), 42, true},
		{"missing", nil, 0, false},
		{"garbage string", "abc", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestContext()
			if tc.value != nil {
				c.Set("user_id", tc.value)
			}
			got, err := getUserID(c)
			if tc.ok && (err != nil || got != tc.want) {
				t.Fatalf("getUserID = (%d, %v), want (%d, nil)", got, err, tc.want)
			}
			if !tc.ok && err == nil {
				t.Fatalf("getUserID = (%d, nil), want error", got)
			}
		})
	}
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{workflow.Validationf("bad field"), http.StatusBadRequest},
		{workflow.ErrInvalidTransition, http.StatusBadRequest},
		{workflow.ErrWarrantyExpired, http.StatusBadRequest},
		{workflow.ErrNothingPending, http.StatusBadRequest},
		{workflow.ErrForbidden, http.StatusForbidden},
		{repository.ErrBookingNotFound, http.StatusNotFound},
		{repository.ErrClaimNotFound, http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newTestContext()
		if err := respondError(c, tc.err); err != nil {
			t.Fatalf("respondError(%v): %v", tc.err, err)
		}
		if rec.Code != tc.code {
			t.Errorf("respondError(%v) wrote %d, want %d", tc.err, rec.Code, tc.code)
		}
	}
}
