package service

import (
	"errors"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/gateway"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid_credentials", "invalid email or password")
	ErrInvalidSession     = apperr.New(apperr.KindUnauthorized, "invalid_session", "session is invalid or expired")
	ErrNotVerified        = apperr.New(apperr.KindForbidden, "not_verified", "email address is not verified")
	ErrAccountBanned      = apperr.New(apperr.KindForbidden, "account_banned", "account is banned")
	ErrForbidden          = apperr.New(apperr.KindForbidden, "forbidden", "operation not permitted")
	ErrAccountNotFound    = apperr.New(apperr.KindNotFound, "account_not_found", "account not found")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email_taken", "email is already registered")
	ErrAlreadyVerified    = apperr.New(apperr.KindConflict, "already_verified", "account is already verified")

	ErrOTPInvalid          = apperr.New(apperr.KindValidation, "otp_invalid", "verification code is incorrect")
	ErrOTPExpired          = apperr.New(apperr.KindExpired, "otp_expired", "verification code has expired")
	ErrOTPNotFound         = apperr.New(apperr.KindNotFound, "otp_not_found", "no verification code is pending")
	ErrOTPAttemptsExceeded = apperr.New(apperr.KindExpired, "otp_attempts_exceeded", "too many attempts, request a new code")
	ErrOTPResendLimited    = apperr.New(apperr.KindRateLimited, "otp_resend_limited", "too many codes requested, try again later")

	ErrTokenInvalid  = apperr.New(apperr.KindValidation, "verification_token_invalid", "verification token is incorrect")
	ErrTokenExpired  = apperr.New(apperr.KindExpired, "verification_token_expired", "verification token has expired")
	ErrTokenNotFound = apperr.New(apperr.KindNotFound, "verification_token_not_found", "verification token is not valid")

	ErrContentNotFound     = apperr.New(apperr.KindNotFound, "content_not_found", "content not found")
	ErrNotDownloadable     = apperr.New(apperr.KindValidation, "not_downloadable", "content has no downloadable file")
	ErrEntitlementRequired = apperr.New(apperr.KindForbidden, "entitlement_required", "purchase or subscription required")

	ErrPlanInactive          = apperr.New(apperr.KindValidation, "plan_inactive", "plan is not available")
	ErrAlreadySubscribed     = apperr.New(apperr.KindConflict, "already_subscribed", "an active subscription already exists")
	ErrNotPurchasable        = apperr.New(apperr.KindValidation, "not_purchasable", "content cannot be purchased")
	ErrAlreadyPurchased      = apperr.New(apperr.KindConflict, "already_purchased", "content is already owned")
	ErrPurchasePending       = apperr.New(apperr.KindConflict, "purchase_pending", "an earlier checkout for this content is still being processed")
	ErrPaymentNotFound       = apperr.New(apperr.KindNotFound, "payment_not_found", "payment not found")
	ErrPaymentFailed         = apperr.New(apperr.KindConflict, "payment_failed", "payment already failed")
	ErrOrderMismatch         = apperr.New(apperr.KindValidation, "order_mismatch", "external order id does not match payment")
	ErrSubscriptionNotFound  = apperr.New(apperr.KindNotFound, "subscription_not_found", "subscription not found")
	ErrNotCancellable        = apperr.New(apperr.KindConflict, "not_cancellable", "subscription is not active")
)

func validation(code, message string) error {
	return apperr.New(apperr.KindValidation, code, message)
}

// gatewayError classifies errors returned by the payment gateway.
func gatewayError(err error) error {
	if errors.Is(err, gateway.ErrTimeout) {
		return apperr.Wrap(apperr.KindGatewayTimeout, "gateway_timeout", "payment provider did not respond", err)
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return apperr.Wrap(apperr.KindGateway, "gateway_error", gwErr.Description, err)
	}
	return apperr.Wrap(apperr.KindGateway, "gateway_error", "payment provider error", err)
}
