package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/api/internal/platform/apperr"
	"github.com/medbook/api/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the appointment routes. Every route needs a token;
// role rules live in the service so their messages stay specific.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.POST("/book", h.Book)
	g.GET("/my", h.ListMine)
	g.GET("/available-slots", h.AvailableSlots)
	g.POST("/:id/cancel", h.Cancel)
	g.PUT("/:id/status", h.SetStatus)
}

func caller(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}

// appointmentID parses the :id path parameter. A malformed id names no
// appointment.
func appointmentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.HTTP(ErrAppointmentNotFound)
	}
	return id, nil
}

func (h *Handler) Book(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), p, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":     "Appointment booked successfully",
		"appointment": a.Booked(),
	})
}

func (h *Handler) ListMine(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	views, err := h.svc.ListMine(c.Request().Context(), p)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) Cancel(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Cancel(c.Request().Context(), p, id); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment cancelled successfully"})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.SetStatus(c.Request().Context(), p, id, req.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "Appointment status updated",
		"appointment": map[string]interface{}{"id": a.ID, "status": a.Status},
	})
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	res, err := h.svc.AvailableSlots(c.Request().Context(), c.QueryParam("doctor_id"), c.QueryParam("date"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
