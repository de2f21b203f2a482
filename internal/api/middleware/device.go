package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DeviceIDHeader = "X-Device-Id"

	deviceIDKey = "device_id"
	clientIPKey = "client_ip"

	unknownIP = "unknown"
)

// Identity resolves the voter identity inputs once per request: the trimmed
// device token and the client ip (first X-Forwarded-For hop, else the
// socket address).
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(deviceIDKey, strings.TrimSpace(c.GetHeader(DeviceIDHeader)))
		c.Set(clientIPKey, ExtractClientIP(c))
		c.Next()
	}
}

// ExtractClientIP returns the first X-Forwarded-For entry, falling back to
// gin's ClientIP and then "unknown". It feeds the voter ledger only; rate
// limiting keys on gin's ClientIP.
func ExtractClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return unknownIP
}

// GetDeviceID returns the device token set by Identity
func GetDeviceID(c *gin.Context) string {
	if v, ok := c.Get(deviceIDKey); ok {
		return v.(string)
	}
	return strings.TrimSpace(c.GetHeader(DeviceIDHeader))
}

// GetClientIP returns the ip set by Identity
func GetClientIP(c *gin.Context) string {
	if v, ok := c.Get(clientIPKey); ok {
		return v.(string)
	}
	return ExtractClientIP(c)
}
