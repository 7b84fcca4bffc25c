package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

// RegistrationHandler exposes the registration ledger.
type RegistrationHandler struct {
	service ports.RegistrationService
}

func NewRegistrationHandler(service ports.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Register handles POST /api/courses/:id/register.
//
// @Summary      Register for a course
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Course id"
// @Success      201  {object}  registrationResponse
// @Failure      400  {object}  map[string]string  "registration window closed"
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string  "course full or already registered"
// @Failure      429  {object}  map[string]string
// @Failure      503  {object}  map[string]string  "transient failure, retry"
// @Router       /api/courses/{id}/register [post]
func (h *RegistrationHandler) Register(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	receipt, err := h.service.Register(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRegistrationResponse(receipt))
}

// Unregister handles DELETE /api/courses/:id/unregister.
//
// @Summary      Cancel a registration
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Course id"
// @Success      200  {object}  registrationResponse
// @Failure      409  {object}  map[string]string  "not registered"
// @Failure      503  {object}  map[string]string
// @Router       /api/courses/{id}/unregister [delete]
func (h *RegistrationHandler) Unregister(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	receipt, err := h.service.Unregister(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRegistrationResponse(receipt))
}

// MyCourses handles GET /api/my-courses.
//
// @Summary      List the caller's registrations
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  myCoursesResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/my-courses [get]
func (h *RegistrationHandler) MyCourses(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	items, err := h.service.ListRegistrationsForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.CourseSummary{}
	}
	return c.JSON(http.StatusOK, myCoursesResponse{Items: items})
}

// Reconcile handles POST /api/admin/courses/:id/reconcile.
//
// @Summary      Recompute a course's registered counter
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Course id"
// @Success      200  {object}  reconcileResponse
// @Failure      404  {object}  map[string]string
// @Router       /api/admin/courses/{id}/reconcile [post]
func (h *RegistrationHandler) Reconcile(c echo.Context) error {
	res, err := h.service.Reconcile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reconcileResponse{
		CourseID: res.CourseID,
		Before:   res.Before,
		After:    res.After,
		Drifted:  res.Drifted(),
	})
}

func toRegistrationResponse(r *ports.Receipt) registrationResponse {
	return registrationResponse{
		Registration: r.Registration,
		Registered:   r.Registered,
		Capacity:     r.Capacity,
		Remaining:    r.Capacity - r.Registered,
	}
}
