package controllers

import (
	"errors"
	"net/http"

	"payment-challenge-service/middleware"
	"payment-challenge-service/models"
	"payment-challenge-service/repository"
	"payment-challenge-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentSessionController struct {
	Service services.PaymentSessionService
	Logger  *zap.Logger
}

type createSessionRequest struct {
	models.PaymentSessionData
	DeviceChannel models.DeviceChannel              `json:"deviceChannel"`
	EmailAddress  string                            `json:"emailAddress"`
	IsGuestUser   bool                              `json:"isGuestUser"`
	Setting       *models.PaymentExperienceSetting  `json:"paymentExperienceSetting"`
}

// CreateSession handles POST /paymentSessions.
func (pc *PaymentSessionController) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deviceChannel := req.DeviceChannel
	if deviceChannel == "" {
		deviceChannel = models.DeviceChannelBrowser
	}

	session, err := pc.Service.CreatePaymentSession(c.Request.Context(), middleware.GetAccountID(c), &req.PaymentSessionData, services.CreateSessionOptions{
		DeviceChannel:    deviceChannel,
		EmailAddress:     req.EmailAddress,
		Flights:          middleware.GetFlights(c),
		IsMotoAuthorized: middleware.IsMotoAuthorized(c),
		Setting:          req.Setting,
		IsGuestUser:      req.IsGuestUser,
	})
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetSession handles GET /paymentSessions/:sessionId.
func (pc *PaymentSessionController) GetSession(c *gin.Context) {
	session, err := pc.Service.GetPaymentSession(c.Request.Context(), middleware.GetAccountID(c), c.Param("sessionId"))
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// BrowserFlowContext handles POST /paymentSessions/:sessionId/browserFlowContext.
func (pc *PaymentSessionController) BrowserFlowContext(c *gin.Context) {
	var browserInfo models.BrowserInfo
	if err := c.ShouldBindJSON(&browserInfo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flowCtx, err := pc.Service.GetBrowserFlowContext(c.Request.Context(), middleware.GetAccountID(c), c.Param("sessionId"), &browserInfo)
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowCtx)
}

// NotifyThreeDSMethodCompleted handles the ACS fingerprint callback. The
// caller is the ACS, not the account holder, so the route carries no
// account header.
func (pc *PaymentSessionController) NotifyThreeDSMethodCompleted(c *gin.Context) {
	var req struct {
		MethodCompletionIndicator models.ThreeDSMethodCompletionIndicator `json:"threeDSMethodCompletionIndicator"`
	}
	_ = c.ShouldBindJSON(&req)

	flowCtx, err := pc.Service.NotifyThreeDSMethodCompleted(c.Request.Context(), c.Param("sessionId"), req.MethodCompletionIndicator)
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowCtx)
}

// Authenticate handles POST /paymentSessions/:sessionId/authenticate for
// app-based clients.
func (pc *PaymentSessionController) Authenticate(c *gin.Context) {
	var req models.ChallengeAuthenticationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := pc.Service.Authenticate(c.Request.Context(), middleware.GetAccountID(c), c.Param("sessionId"), &req)
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompleteChallenge handles the ACS challenge-completed callback.
func (pc *PaymentSessionController) CompleteChallenge(c *gin.Context) {
	session, err := pc.Service.CompleteThreeDSChallenge(c.Request.Context(), middleware.GetAccountID(c), c.Param("sessionId"))
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CompleteThreeDSOneChallenge handles the legacy 3DS1 redirect return,
// forwarding the PaRes form fields to the provider.
func (pc *PaymentSessionController) CompleteThreeDSOneChallenge(c *gin.Context) {
	var authParams map[string]string
	_ = c.ShouldBindJSON(&authParams)

	session, err := pc.Service.CompleteThreeDSOneChallenge(c.Request.Context(), middleware.GetAccountID(c), c.Param("sessionId"), authParams)
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// AuthenticateUpi handles POST /paymentSessions/:sessionId/authenticateUpi.
func (pc *PaymentSessionController) AuthenticateUpi(c *gin.Context) {
	session, err := pc.Service.AuthenticateUpiPaymentTxn(c.Request.Context(), middleware.GetAccountID(c), c.Param("sessionId"))
	if err != nil {
		pc.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (pc *PaymentSessionController) renderError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		status := http.StatusBadRequest
		switch validationErr.Code {
		case models.ErrCodeUnauthorizedMoto:
			status = http.StatusUnauthorized
		case models.ErrCodePaymentInstrumentNotFound:
			status = http.StatusNotFound
		case models.ErrCodeInvalidAccountID:
			status = http.StatusForbidden
		}
		c.JSON(status, validationErr)
		return
	}

	if errors.Is(err, repository.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment session not found"})
		return
	}

	var serviceErr *models.ServiceError
	if errors.As(err, &serviceErr) {
		status := serviceErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, serviceErr)
		return
	}

	pc.Logger.Error("unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
