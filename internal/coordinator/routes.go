package coordinator

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/collision-engine/internal/hashcore"
	"github.com/rawblock/collision-engine/internal/store"
)

// SetupRouter builds the coordinator's HTTP surface: the ingest endpoint
// (§4.4), health, the live telemetry stream, and static dashboard assets
// (out of scope per §1, served as a pure file handler).
func SetupRouter(descriptor hashcore.Descriptor, s store.Store, hub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	handler := NewHandler(descriptor, s, hub)
	limiter := NewRateLimiter(120, 20)

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", hub.Subscribe)
	}

	r.POST("/submit_work", limiter.Middleware(), handler.handleSubmitWork)

	r.Static("/static", "./public")

	return r
}
