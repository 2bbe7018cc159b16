package handlers

import (
	"net/http"
	"strconv"

	"examforge/services"

	"github.com/gin-gonic/gin"
)

type AnswerHandler struct {
	answerService *services.AnswerService
}

func NewAnswerHandler(answerService *services.AnswerService) *AnswerHandler {
	return &AnswerHandler{answerService: answerService}
}

func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.CreateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.answerService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, answer)
}

func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	answers, err := h.answerService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answers)
}

// GetTestAnswers returns the caller's answer sheet for one test: every
// question, answered or blank.
func (h *AnswerHandler) GetTestAnswers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	testID, err := strconv.ParseUint(c.Param("testId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test ID"})
		return
	}

	answers, err := h.answerService.ListForTest(c.Request.Context(), uint(testID), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answers)
}

func (h *AnswerHandler) GetAnswerByID(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	answer, err := h.answerService.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req services.UpdateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.answerService.Update(c.Request.Context(), c.Param("id"), userID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
