package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/gateway"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeWebhook settles payments pushed by Stripe. Anything Stripe cannot fix by retrying
// is acknowledged and logged.
func (h HandlerSet) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	confirmation, err := h.webhooks.ParseWebhook(payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		if errors.Is(err, gateway.ErrIgnoredEvent) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.fail(c, apperr.New(apperr.KindUnauthorized, "invalid_webhook", "webhook signature could not be verified"))
		return
	}

	payment, err := h.ledger.ConfirmByExternalID(c.Request.Context(), confirmation.ExternalOrderID, confirmation.Succeeded)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.fail(c, err)
			return
		}
		h.log.Warn().
			Err(err).
			Str("external_order_id", confirmation.ExternalOrderID).
			Msg("webhook confirmation rejected")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "payment": newPaymentResponse(payment)})
}
