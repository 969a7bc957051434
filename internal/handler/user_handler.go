package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-appointment-api/internal/models"
	"github.com/noah-isme/sma-appointment-api/pkg/response"
)

type directoryService interface {
	List(ctx context.Context, search string) ([]models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	Get(ctx context.Context, email string) (*models.User, error)
}

// UserHandler exposes the read-only user directory.
type UserHandler struct {
	service directoryService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc directoryService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List directory users ordered by username
// @Tags Users
// @Produce json
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users)
}

// ByRole godoc
// @Summary List users by role
// @Tags Users
// @Produce json
// @Param role path string true "student, teacher or admin"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/role/{role} [get]
func (h *UserHandler) ByRole(c *gin.Context) {
	users, err := h.service.ListByRole(c.Request.Context(), c.Param("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users)
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param email path string true "User email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{email} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}
