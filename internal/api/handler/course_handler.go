package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursehub/registration-api/internal/core/ports"
)

// CourseHandler serves the public catalog and its admin maintenance routes.
type CourseHandler struct {
	service ports.CourseService
}

func NewCourseHandler(service ports.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List handles GET /api/courses.
//
// @Summary      List courses
// @Tags         courses
// @Produce      json
// @Param        search    query     string  false  "Substring of title or description"
// @Param        status    query     string  false  "upcoming, ongoing or ended"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        per_page  query     int     false  "Page size (default 10, max 100)"
// @Success      200       {object}  courseListResponse
// @Failure      400       {object}  map[string]string
// @Router       /api/courses [get]
func (h *CourseHandler) List(c echo.Context) error {
	var q listCoursesQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.ListCourses(c.Request().Context(), ports.ListCoursesInput{
		Search: q.Search,
		Status: q.Status,
		Page:   q.Page,
		Limit:  q.PerPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, courseListResponse{
		Items: res.Items,
		Pagination: pagination{
			Total:   res.Total,
			Page:    res.Page,
			PerPage: res.Limit,
			HasMore: res.HasMore,
		},
	})
}

// Get handles GET /api/courses/:id.
//
// @Summary      Get a course
// @Tags         courses
// @Produce      json
// @Param        id   path      string  true  "Course id"
// @Success      200  {object}  domain.Course
// @Failure      404  {object}  map[string]string
// @Router       /api/courses/{id} [get]
func (h *CourseHandler) Get(c echo.Context) error {
	course, err := h.service.GetCourse(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

// Create handles POST /api/admin/courses.
//
// @Summary      Create a course
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      courseRequest  true  "Course details"
// @Success      201   {object}  domain.Course
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/admin/courses [post]
func (h *CourseHandler) Create(c echo.Context) error {
	input, err := bindCourse(c)
	if err != nil {
		return err
	}
	course, err := h.service.CreateCourse(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, course)
}

// Update handles PUT /api/admin/courses/:id.
//
// @Summary      Update a course
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Course id"
// @Param        body  body      courseRequest  true  "Course details"
// @Success      200   {object}  domain.Course
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/admin/courses/{id} [put]
func (h *CourseHandler) Update(c echo.Context) error {
	input, err := bindCourse(c)
	if err != nil {
		return err
	}
	course, err := h.service.UpdateCourse(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

// Delete handles DELETE /api/admin/courses/:id.
//
// @Summary      Delete a course
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "Course id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/admin/courses/{id} [delete]
func (h *CourseHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteCourse(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func bindCourse(c echo.Context) (ports.CourseInput, error) {
	var req courseRequest
	if err := c.Bind(&req); err != nil {
		return ports.CourseInput{}, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return ports.CourseInput{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return ports.CourseInput{
		Title:             req.Title,
		Description:       req.Description,
		Date:              req.Date,
		Time:              req.Time,
		Location:          req.Location,
		Image:             req.Image,
		Capacity:          req.Capacity,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
	}, nil
}
