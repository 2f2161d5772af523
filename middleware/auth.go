package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	accountIDKey = "accountID"
	flightsKey   = "flights"
	motoKey      = "motoAuthorized"
)

// AccountMiddleware extracts the caller identity and per-request feature
// context from headers. X-Account-ID is required on account-scoped routes;
// x-ms-flight carries a comma-separated flight list and x-ms-moto-authorized
// marks a caller allowed to create MOTO sessions.
func AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetHeader("X-Account-ID")
		if accountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-Account-ID header"})
			return
		}
		c.Set(accountIDKey, accountID)
		setRequestContext(c)
		c.Next()
	}
}

// FlightMiddleware populates flight context on routes that have no caller
// identity, such as ACS callbacks.
func FlightMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setRequestContext(c)
		c.Next()
	}
}

func setRequestContext(c *gin.Context) {
	if raw := c.GetHeader("x-ms-flight"); raw != "" {
		parts := strings.Split(raw, ",")
		flights := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				flights = append(flights, p)
			}
		}
		c.Set(flightsKey, flights)
	}
	if strings.EqualFold(c.GetHeader("x-ms-moto-authorized"), "true") {
		c.Set(motoKey, true)
	}
}

func GetAccountID(c *gin.Context) string {
	return c.GetString(accountIDKey)
}

func GetFlights(c *gin.Context) []string {
	if v, ok := c.Get(flightsKey); ok {
		if flights, ok := v.([]string); ok {
			return flights
		}
	}
	return nil
}

func IsMotoAuthorized(c *gin.Context) bool {
	return c.GetBool(motoKey)
}
