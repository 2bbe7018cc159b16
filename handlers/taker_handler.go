package handlers

import (
	"net/http"
	"strconv"

	"examforge/services"

	"github.com/gin-gonic/gin"
)

type TakerHandler struct {
	takerService *services.TakerService
}

func NewTakerHandler(takerService *services.TakerService) *TakerHandler {
	return &TakerHandler{takerService: takerService}
}

// GetTest serves the answer-stripped test view to owners and redeemers.
func (h *TakerHandler) GetTest(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test ID"})
		return
	}

	view, err := h.takerService.GetTest(c.Request.Context(), uint(id), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *TakerHandler) GetSharedTests(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	views, err := h.takerService.ListShared(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}
