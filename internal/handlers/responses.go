package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/middleware"
	"contentgate/api/internal/models"
	"contentgate/api/internal/service"
)

func (h HandlerSet) fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFrom(c)).
			Str("route", c.FullPath()).
			Msg("request failed")
	}
	middleware.AbortWithError(c, err)
}

func invalidRequest(err error) error {
	return apperr.New(apperr.KindValidation, "invalid_request", err.Error())
}

type accountResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	Banned        bool      `json:"banned"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newAccountResponse(account models.Account) accountResponse {
	return accountResponse{
		ID:            account.ID,
		Email:         account.Email,
		DisplayName:   account.DisplayName,
		Role:          string(account.Role),
		EmailVerified: account.EmailVerified,
		Banned:        account.Banned,
		CreatedAt:     account.CreatedAt,
	}
}

type authResponse struct {
	AccessToken      string          `json:"accessToken"`
	AccessExpiresAt  time.Time       `json:"accessExpiresAt"`
	RefreshToken     string          `json:"refreshToken"`
	RefreshExpiresAt time.Time       `json:"refreshExpiresAt"`
	DeviceID         string          `json:"deviceId"`
	Account          accountResponse `json:"account"`
}

func newAuthResponse(result service.AuthResult) authResponse {
	return authResponse{
		AccessToken:      result.AccessToken,
		AccessExpiresAt:  result.AccessExpiresAt,
		RefreshToken:     result.RefreshToken,
		RefreshExpiresAt: result.RefreshExpiresAt,
		DeviceID:         result.DeviceID,
		Account:          newAccountResponse(result.Account),
	}
}

type contentResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Category   string    `json:"category"`
	Excerpt    string    `json:"excerpt"`
	Body       string    `json:"body"`
	AccessType string    `json:"accessType"`
	Price      *int64    `json:"price,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	HasAccess  bool      `json:"hasAccess"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newContentResponse(view service.ContentView) contentResponse {
	item := view.Item
	return contentResponse{
		ID:         item.ID,
		Kind:       string(item.Kind),
		Title:      item.Title,
		Slug:       item.Slug,
		Category:   item.Category,
		Excerpt:    item.Excerpt,
		Body:       view.Body,
		AccessType: string(item.AccessType),
		Price:      item.Price,
		Currency:   item.Currency,
		HasAccess:  view.HasAccess,
		Reason:     string(view.Reason),
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

type planResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	Currency       string `json:"currency"`
	DurationMonths int    `json:"durationMonths"`
}

type subscriptionResponse struct {
	ID             string     `json:"id"`
	PlanID         string     `json:"planId"`
	Price          int64      `json:"price"`
	Currency       string     `json:"currency"`
	DurationMonths int        `json:"durationMonths"`
	Status         string     `json:"status"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        time.Time  `json:"endDate"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
}

func newSubscriptionResponse(sub models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:             sub.ID,
		PlanID:         sub.PlanID,
		Price:          sub.Price,
		Currency:       sub.Currency,
		DurationMonths: sub.DurationMonths,
		Status:         string(sub.Status),
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		CancelledAt:    sub.CancelledAt,
	}
}

type checkoutResponse struct {
	PaymentID       string `json:"paymentId"`
	SubscriptionID  string `json:"subscriptionId,omitempty"`
	ExternalOrderID string `json:"externalOrderId"`
	OrderHandle     string `json:"orderHandle"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

func newCheckoutResponse(checkout service.Checkout) checkoutResponse {
	return checkoutResponse{
		PaymentID:       checkout.PaymentID,
		SubscriptionID:  checkout.SubscriptionID,
		ExternalOrderID: checkout.ExternalOrderID,
		OrderHandle:     checkout.ClientSecret,
		Amount:          checkout.Amount,
		Currency:        checkout.Currency,
	}
}

type paymentResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Purpose         string `json:"purpose"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	ExternalOrderID string `json:"externalOrderId"`
}

func newPaymentResponse(p models.Payment) paymentResponse {
	resp := paymentResponse{
		ID:              p.ID,
		Status:          string(p.Status),
		Amount:          p.Amount,
		Currency:        p.Currency,
		ExternalOrderID: p.ExternalOrderID,
	}
	if p.Purpose != nil {
		resp.Purpose = string(p.Purpose.Kind())
	}
	return resp
}
