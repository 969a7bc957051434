package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-appointment-api/internal/middleware"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
	"github.com/noah-isme/sma-appointment-api/pkg/response"
)

// actorFromContext resolves the authenticated caller, writing a 401 when there is none.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func countsMeta(counts models.StatusCounts) map[string]interface{} {
	return map[string]interface{}{"counts": counts}
}
