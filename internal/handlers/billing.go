package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/gateway"
	"contentgate/api/internal/middleware"
)

func (h HandlerSet) ListPlans(c *gin.Context) {
	plans, err := h.ledger.ListPlans(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		items = append(items, planResponse{
			ID:             plan.ID,
			Name:           plan.Name,
			Price:          plan.Price,
			Currency:       plan.Currency,
			DurationMonths: plan.DurationMonths,
		})
	}

	c.JSON(http.StatusOK, gin.H{"plans": items})
}

type purchaseRequest struct {
	ContentID string `json:"contentId" binding:"required"`
}

func (h HandlerSet) StartPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	checkout, err := h.ledger.StartPurchase(c.Request.Context(), middleware.PrincipalFrom(c), req.ContentID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, newCheckoutResponse(checkout))
}

type subscribeRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

func (h HandlerSet) CreateSubscription(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	checkout, err := h.ledger.CreateSubscription(c.Request.Context(), middleware.PrincipalFrom(c), req.PlanID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, newCheckoutResponse(checkout))
}

func (h HandlerSet) ListSubscriptions(c *gin.Context) {
	subs, err := h.ledger.ListSubscriptions(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, newSubscriptionResponse(sub))
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": items})
}

func (h HandlerSet) CancelSubscription(c *gin.Context) {
	sub, err := h.ledger.CancelSubscription(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": newSubscriptionResponse(sub)})
}

type confirmPaymentRequest struct {
	ExternalOrderID string `json:"externalOrderId" binding:"required"`
	Succeeded       *bool  `json:"succeeded" binding:"required"`
}

// ConfirmPayment is the signed callback used by the payment relay.
func (h HandlerSet) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	payment, err := h.ledger.ConfirmPayment(c.Request.Context(), c.Param("id"), gateway.Confirmation{
		ExternalOrderID: req.ExternalOrderID,
		Succeeded:       *req.Succeeded,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": newPaymentResponse(payment)})
}
