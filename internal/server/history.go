package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/refimg-go/internal/history"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type HistoryController struct {
	history HistoryStore
}

func NewHistoryController(store HistoryStore) *HistoryController {
	return &HistoryController{history: store}
}

type HistoryResponse struct {
	Runs []history.Run `json:"runs"`
}

// List handles GET /history?limit=N.
func (h *HistoryController) List(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusNotFound, CodeHistoryDisabled, "history is not enabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to load history")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Runs: runs})
}

// Show handles GET /history/:id.
func (h *HistoryController) Show(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusNotFound, CodeHistoryDisabled, "history is not enabled")
		return
	}

	run, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, CodeNotFound, "run not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "failed to load run")
		return
	}
	c.JSON(http.StatusOK, run)
}
