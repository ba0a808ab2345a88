package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/model"
)

type interactionRequest struct {
	UserID  string `json:"userId"`
	TradeID string `json:"tradeId"`
	Action  string `json:"action"`
}

// LogInteraction 记录用户对信号的操作
func (h *Handlers) LogInteraction(c *gin.Context) {
	var req interactionRequest
	_ = c.ShouldBindJSON(&req)
	if req.UserID == "" || req.TradeID == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	interaction := &model.TradeInteraction{
		UserID:  req.UserID,
		TradeID: req.TradeID,
		Action:  req.Action,
	}
	if err := h.store.LogInteraction(ctx, interaction); err != nil {
		h.log.Error("保存交互记录失败", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log interaction", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "interaction": interaction})
}

// GetInteractions 查询用户最近的交互记录
func (h *Handlers) GetInteractions(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId"})
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	interactions, err := h.store.GetInteractions(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch interactions", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"interactions": interactions})
}
