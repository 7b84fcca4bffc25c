package handler

import (
	"time"

	"github.com/coursehub/registration-api/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

type createUserRequest struct {
	Username     string `json:"username"     validate:"required"`
	Email        string `json:"email"        validate:"required,email"`
	Password     string `json:"password"     validate:"required,min=6"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Role         string `json:"role"         validate:"omitempty,oneof=admin student"`
}

type profileRequest struct {
	Username     string `json:"username"     validate:"required"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Address      string `json:"address"`
}

type courseRequest struct {
	Title             string    `json:"title"              validate:"required"`
	Description       string    `json:"description"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Location          string    `json:"location"`
	Image             string    `json:"image"`
	Capacity          int       `json:"capacity"           validate:"required,gt=0"`
	RegistrationStart time.Time `json:"registration_start" validate:"required"`
	RegistrationEnd   time.Time `json:"registration_end"   validate:"required,gtefield=RegistrationStart"`
}

type listCoursesQuery struct {
	Search  string `query:"search"`
	Status  string `query:"status"   validate:"omitempty,oneof=upcoming ongoing ended"`
	Page    int    `query:"page"     validate:"min=0,max=1000000"`
	PerPage int    `query:"per_page" validate:"min=0,max=100"`
}

type listUsersQuery struct {
	Search  string `query:"search"`
	Page    int    `query:"page"     validate:"min=0,max=1000000"`
	PerPage int    `query:"per_page" validate:"min=0,max=100"`
}

type pagination struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	HasMore bool  `json:"has_more"`
}

type courseListResponse struct {
	Items      []*domain.Course `json:"items"`
	Pagination pagination       `json:"pagination"`
}

type userListResponse struct {
	Items      []*domain.User `json:"items"`
	Pagination pagination     `json:"pagination"`
}

type registrationResponse struct {
	Registration domain.Registration `json:"registration"`
	Registered   int                 `json:"registered"`
	Capacity     int                 `json:"capacity"`
	Remaining    int                 `json:"remaining"`
}

type myCoursesResponse struct {
	Items []domain.CourseSummary `json:"items"`
}

type reconcileResponse struct {
	CourseID string `json:"course_id"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Drifted  bool   `json:"drifted"`
}

type messageResponse struct {
	Message string `json:"message"`
}
