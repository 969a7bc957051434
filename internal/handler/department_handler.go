package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
	"github.com/noah-isme/sma-appointment-api/pkg/response"
)

type departmentCatalog interface {
	List() []models.Department
	Get(slug string) (models.Department, bool)
}

type departmentHeads interface {
	DepartmentHeads(ctx context.Context) ([]models.User, error)
}

// DepartmentHandler serves department reference data.
type DepartmentHandler struct {
	catalog   departmentCatalog
	directory departmentHeads
}

// NewDepartmentHandler constructs a DepartmentHandler.
func NewDepartmentHandler(catalog departmentCatalog, directory departmentHeads) *DepartmentHandler {
	return &DepartmentHandler{catalog: catalog, directory: directory}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.List())
}

// Heads godoc
// @Summary Department heads
// @Description Teachers designated HOD for the department.
// @Tags Departments
// @Produce json
// @Param slug path string true "Department slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /departments/{slug}/heads [get]
func (h *DepartmentHandler) Heads(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	dept, ok := h.catalog.Get(slug)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "department not found"))
		return
	}

	heads, err := h.directory.DepartmentHeads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	matched := make([]models.User, 0, len(heads))
	for _, u := range heads {
		if u.DepartmentSlug() == dept.Slug {
			matched = append(matched, u)
		}
	}
	response.JSON(c, http.StatusOK, matched, map[string]interface{}{"department": dept})
}
