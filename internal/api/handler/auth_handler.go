package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/coursehub/registration-api/internal/core/ports"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// CreateUser lets an administrator open an account.
//
// @Summary      Create a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/admin/users [post]
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.CreateUser(c.Request().Context(), ports.CreateUserInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		Organization: req.Organization,
		Role:         req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// SocialAuth redirects the browser to the identity provider's consent page.
//
// @Summary      Start social login
// @Tags         auth
// @Success      302
// @Failure      501  {object}  map[string]string
// @Router       /api/social/auth [get]
func (h *AuthHandler) SocialAuth(c echo.Context) error {
	state := uuid.NewString()
	url, err := h.authService.SocialAuthURL(state)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/social",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, url)
}

// SocialLogin exchanges the provider's authorization code for a JWT.
// Clients that obtain the code themselves (mini programs) send no state;
// browser flows started by SocialAuth must echo the state back.
//
// @Summary      Complete social login
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true   "Authorization code"
// @Param        state  query     string  false  "State issued by /api/social/auth"
// @Success      200    {object}  authResponse
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      501    {object}  map[string]string
// @Router       /api/social/login [get]
func (h *AuthHandler) SocialLogin(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	if state := c.QueryParam("state"); state != "" {
		cookie, err := c.Cookie(stateCookie)
		if err != nil || cookie.Value != state {
			return echo.NewHTTPError(http.StatusBadRequest, "state mismatch")
		}
	}

	token, user, err := h.authService.SocialLogin(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}
