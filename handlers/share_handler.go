package handlers

import (
	"net/http"
	"strconv"

	"examforge/services"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	shareService *services.ShareService
}

func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// CreateShare issues (or re-issues) the share token for an owned test.
func (h *ShareHandler) CreateShare(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	testID, err := strconv.ParseUint(c.Param("testId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test ID"})
		return
	}

	token, err := h.shareService.CreateShare(c.Request.Context(), uint(testID), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// RedeemShare consumes a share link. The URL carries all three factors of the
// capability: owner id, test id, and token.
func (h *ShareHandler) RedeemShare(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	ownerID := c.Param("ownerId")
	testID, err := strconv.ParseUint(c.Param("testId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	token := c.Param("token")

	if err := h.shareService.RedeemShare(c.Request.Context(), ownerID, uint(testID), token, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ShareHandler) GetSharedWithMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	tests, err := h.shareService.ListSharedWithMe(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tests)
}
