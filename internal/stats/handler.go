package stats

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/drlau/megumin.love/internal/core/errors"
)

// RegisterRoutes registers the statistics query endpoint.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/statistics", s.HandleQuery)
}

// HandleQuery handles GET /statistics.
// Query parameters: from, to, equals, over, under — all optional.
func (s *Service) HandleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	result, err := s.Query(req)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid statistics query",
				Details:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query statistics",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
