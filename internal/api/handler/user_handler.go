package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Profile handles GET /api/user-profile.
//
// @Summary      Get the caller's profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      404  {object}  map[string]string
// @Router       /api/user-profile [get]
func (h *UserHandler) Profile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/user-profile.
//
// @Summary      Update the caller's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      profileRequest  true  "Profile fields"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Router       /api/user-profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), userID, ports.ProfileInput{
		Username:     req.Username,
		Phone:        req.Phone,
		Organization: req.Organization,
		Address:      req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// List handles GET /api/admin/users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        search    query     string  false  "Matches username, email, phone or organization"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        per_page  query     int     false  "Page size (default 10, max 100)"
// @Success      200       {object}  userListResponse
// @Failure      403       {object}  map[string]string
// @Router       /api/admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.ListUsers(c.Request().Context(), ports.ListUsersFilter{
		Search: q.Search,
		Page:   q.Page,
		Limit:  q.PerPage,
	})
	if err != nil {
		return err
	}
	items := res.Items
	if items == nil {
		items = []*domain.User{}
	}
	return c.JSON(http.StatusOK, userListResponse{
		Items: items,
		Pagination: pagination{
			Total:   res.Total,
			Page:    res.Page,
			PerPage: res.Limit,
			HasMore: res.HasMore,
		},
	})
}
