package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/middleware"
	"contentgate/api/internal/service"
)

type signupRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	account, err := h.identity.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": newAccountResponse(account)})
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type verificationResponse struct {
	VerificationToken string    `json:"verificationToken"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

func (h HandlerSet) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	result, err := h.identity.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, verificationResponse{
		VerificationToken: result.Token,
		ExpiresAt:         result.ExpiresAt,
	})
}

type resendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h HandlerSet) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	if err := h.identity.ResendOTP(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type autoLoginRequest struct {
	Email             string `json:"email" binding:"required"`
	VerificationToken string `json:"verificationToken" binding:"required"`
	DeviceID          string `json:"deviceId"`
	DeviceName        string `json:"deviceName"`
}

func (h HandlerSet) AutoLogin(c *gin.Context) {
	var req autoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	result, err := h.identity.AutoLogin(c.Request.Context(), service.AutoLoginInput{
		Email:  req.Email,
		Token:  req.VerificationToken,
		Device: deviceInfo(c, req.DeviceID, req.DeviceName),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device:   deviceInfo(c, req.DeviceID, req.DeviceName),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func deviceInfo(c *gin.Context, deviceID, deviceName string) service.DeviceInfo {
	return service.DeviceInfo{
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	}
}

type refreshRequest struct {
	AccountID    string `json:"accountId" binding:"required"`
	DeviceID     string `json:"deviceId" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, invalidRequest(err))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), service.RefreshInput{
		AccountID:    req.AccountID,
		DeviceID:     req.DeviceID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

// Logout ends the session of the device the access token was issued to.
func (h HandlerSet) Logout(c *gin.Context) {
	claims := middleware.AccessClaimsFrom(c)
	if claims == nil {
		h.fail(c, service.ErrInvalidSession)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), middleware.PrincipalFrom(c), claims.DeviceID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	account, err := h.auth.Me(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(account)})
}
