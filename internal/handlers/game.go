package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"slots-backend/internal/models"
	"slots-backend/internal/services"
)

type GameHandler struct {
	orchestrator *services.SpinOrchestrator
}

func NewGameHandler(orchestrator *services.SpinOrchestrator) *GameHandler {
	return &GameHandler{orchestrator: orchestrator}
}

// writeGameError renders a coded failure with its mapped HTTP status;
// anything that is not a GameError becomes an opaque 500.
func writeGameError(c *gin.Context, err error) {
	var gameErr *models.GameError
	if errors.As(err, &gameErr) {
		payload := gin.H{
			"success": false,
			"code":    gameErr.Code,
			"error":   gameErr.Message,
		}
		if gameErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.FormatFloat(gameErr.RetryAfter, 'f', -1, 64))
			payload["retry_after"] = gameErr.RetryAfter
		}
		c.JSON(gameErr.Status, payload)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"code":    "internal_error",
		"error":   "Internal server error",
	})
}

func (h *GameHandler) InitGame(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.orchestrator.GameInit(c.Request.Context(), userID, req.GameID)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"init":    result,
	})
}

func (h *GameHandler) Spin(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")

	result, err := h.orchestrator.ExecuteSpin(c.Request.Context(), userID, &req, idempotencyKey)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"spin":    result,
	})
}

func (h *GameHandler) History(c *gin.Context) {
	userID := c.GetString("user_id")

	filters, err := parseHistoryFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	result, err := h.orchestrator.History(c.Request.Context(), userID, filters)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": result,
	})
}

func (h *GameHandler) RoundDetail(c *gin.Context) {
	userID := c.GetString("user_id")
	roundID := c.Param("id")

	detail, err := h.orchestrator.RoundDetail(c.Request.Context(), userID, roundID)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   detail,
	})
}

func (h *GameHandler) FairState(c *gin.Context) {
	userID := c.GetString("user_id")

	info, err := h.orchestrator.FairState(c.Request.Context(), userID)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"provably_fair": info,
	})
}

func (h *GameHandler) RotateSeeds(c *gin.Context) {
	userID := c.GetString("user_id")

	result, err := h.orchestrator.RotateSeeds(c.Request.Context(), userID)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"previous": result.Previous,
		"current":  result.Current,
	})
}

type clientSeedRequest struct {
	ClientSeed string `json:"client_seed"`
}

func (h *GameHandler) SetClientSeed(c *gin.Context) {
	userID := c.GetString("user_id")

	var req clientSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	info, err := h.orchestrator.SetClientSeed(c.Request.Context(), userID, req.ClientSeed)
	if err != nil {
		writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"provably_fair": info,
	})
}

func parseHistoryFilters(c *gin.Context) (models.HistoryFilters, error) {
	var filters models.HistoryFilters

	if v := c.Query("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, err
		}
		filters.DateFrom = &t
	}
	if v := c.Query("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, err
		}
		filters.DateTo = &t
	}
	filters.Result = c.DefaultQuery("result", "all")

	if v := c.Query("min_bet"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filters, err
		}
		cents := models.AmountToCents(amount)
		filters.MinBet = &cents
	}
	if v := c.Query("max_bet"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filters, err
		}
		cents := models.AmountToCents(amount)
		filters.MaxBet = &cents
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filters, err
		}
		filters.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filters, err
		}
		filters.Offset = offset
	}
	return filters, nil
}
