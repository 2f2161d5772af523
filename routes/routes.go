package routes

import (
	"payment-challenge-service/controllers"
	"payment-challenge-service/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterPaymentSessionRoutes(r *gin.Engine, pc *controllers.PaymentSessionController) {
	sessions := r.Group("/paymentSessions")
	sessions.Use(middleware.AccountMiddleware())
	sessions.POST("", pc.CreateSession)
	sessions.GET("/:sessionId", pc.GetSession)
	sessions.POST("/:sessionId/browserFlowContext", pc.BrowserFlowContext)
	sessions.POST("/:sessionId/authenticate", pc.Authenticate)
	sessions.POST("/:sessionId/completeThreeDSOneChallenge", pc.CompleteThreeDSOneChallenge)
	sessions.POST("/:sessionId/authenticateUpi", pc.AuthenticateUpi)

	// ACS callbacks carry no account identity.
	callbacks := r.Group("/paymentSessions")
	callbacks.Use(middleware.FlightMiddleware())
	callbacks.POST("/:sessionId/notifyThreeDSMethodCompleted", pc.NotifyThreeDSMethodCompleted)
	callbacks.POST("/:sessionId/completeChallenge", pc.CompleteChallenge)
}
