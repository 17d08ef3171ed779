package payments

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gitscore-backend/internal/shared/server/respond"
	"gitscore-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the payments service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches checkout and webhook routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout/create", h.createCheckout)
	rg.GET("/checkout/verify/:transactionId", h.verifyPayment)
	rg.POST("/webhooks/payments", h.handleWebhook)
}

type createCheckoutRequest struct {
	AnalysisID string `json:"analysis_id"`
}

func (h *Handler) createCheckout(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AnalysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis_id is required", nil)
		return
	}

	session, err := h.Svc.CreateCheckoutSession(c.Request.Context(), req.AnalysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAnalysisNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Analysis not found.", nil)
		case errors.Is(err, ErrAlreadyPaid):
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Analysis is already paid.",
				"data":    gin.H{"analysis_id": req.AnalysisID},
			})
		case errors.Is(err, ErrNotCompleted):
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Analysis must be completed before checkout.",
			})
		default:
			telemetry.Error("checkout.create_failed", map[string]any{
				"analysis_uuid": req.AnalysisID,
				"error":         err.Error(),
			})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to create checkout session.", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"data": gin.H{
			"session_id":   session.TransactionID,
			"checkout_url": session.CheckoutURL,
		},
	})
}

func (h *Handler) verifyPayment(c *gin.Context) {
	transactionID := c.Param("transactionId")
	if transactionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "transaction id is required", nil)
		return
	}
	isPaid := h.Svc.VerifyPayment(c.Request.Context(), transactionID)
	respond.JSON(c, http.StatusOK, gin.H{
		"data": gin.H{"is_paid": isPaid},
	})
}

func (h *Handler) handleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unreadable payload"})
		return
	}
	signature := c.GetHeader("Paddle-Signature")

	if err := h.Svc.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		telemetry.Error("webhook.failed", map[string]any{"error": err.Error()})
		if errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid webhook request"})
			return
		}
		// Internal failures answer 5xx so the provider redelivers.
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
