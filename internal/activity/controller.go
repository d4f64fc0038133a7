package activity

import (
	"net/http"
	"strconv"

	"todo_api/internal/apperror"
	"todo_api/internal/auth"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	service ActivityServiceInterface
}

func NewActivityController(service ActivityServiceInterface) *ActivityController {
	return &ActivityController{
		service: service,
	}
}

// SetupRoutes registers the activity feed. handlers must include authentication.
func (ac *ActivityController) SetupRoutes(rg *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	rg.Group("/activity", handlers...).GET("/", ac.ListActivity)
}

// ListActivity handles GET /activity/?limit=N
func (ac *ActivityController) ListActivity(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		_ = c.Error(apperror.Authentication("Authentication credentials were not provided."))
		return
	}

	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			_ = c.Error(apperror.ValidationField("limit", "A valid positive integer is required."))
			return
		}
	}

	activities, err := ac.service.ListActivity(c.Request.Context(), userID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": activities})
}
