package middleware

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

// LogApi writes one access line per request to out
func LogApi(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		// The socket endpoint would log once per connection lifetime
		SkipPaths: []string{"/api/ws"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[%s] | %s | %d | %s | %s | %s | %s | %s | %s\n",
				param.TimeStamp.Format("2006-01-02 15:04:05"),
				param.ClientIP,
				param.StatusCode,
				param.Method,
				param.Path,
				param.Request.UserAgent(),
				param.ErrorMessage,
				param.Latency,
				param.Request.Proto,
			)
		},
	})
}
