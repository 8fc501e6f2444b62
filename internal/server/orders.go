package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/realtyleadsai/leadflow/internal/fulfillment"
)

func (s *Server) GetOrderByID(c *gin.Context) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// FinalizeOrder runs the delivery finalizer for one order on demand. The
// scrape pipeline calls this when a batch of leads lands; the periodic
// sweep covers anything it misses.
func (s *Server) FinalizeOrder(c *gin.Context) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.finalizer.Finalize(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == fulfillment.OutcomeAwaitingLeads {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"outcome":      string(result.Outcome),
		"artifact_url": result.ArtifactURL,
		"lead_count":   result.LeadCount,
	})
}

func parseOrderID(raw string) (snowflake.ID, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(parsed), nil
}
