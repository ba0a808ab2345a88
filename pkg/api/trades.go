package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/service"
)

// CaptureTrade 接收券商平台推送的成交
func (h *Handlers) CaptureTrade(c *gin.Context) {
	var payload service.CapturePayload
	if err := c.ShouldBindJSON(&payload); err != nil || !payload.HasRequired() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields"})
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	trade, err := h.trades.Capture(ctx, payload)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ve.Message})
			return
		}
		h.log.Error("保存成交失败", logger.String("user_id", payload.UserID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"trade":   trade,
		"message": "Trade captured successfully",
	})
}

// GetUserTrades 查询用户成交
func (h *Handlers) GetUserTrades(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = service.DefaultTradeLimit
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	trades, err := h.trades.UserTrades(ctx, c.Param("userId"), limit)
	if err != nil {
		h.log.Error("查询用户成交失败", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trades": trades, "count": len(trades)})
}

// GetUserTradeStats 用户成交统计
func (h *Handlers) GetUserTradeStats(c *gin.Context) {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	stats, err := h.trades.Stats(ctx, c.Param("userId"))
	if err != nil {
		h.log.Error("查询成交统计失败", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
