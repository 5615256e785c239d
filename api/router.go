package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ddevcap/fontprefs/api/handler"
	"github.com/ddevcap/fontprefs/api/middleware"
	"github.com/ddevcap/fontprefs/config"
)

// corsMiddleware returns a gin-contrib/cors middleware for the JSON API.
// Preferences live in cookies, so only ExternalURL and CORSOrigins are
// allowed, with credentials. Other origins get no CORS headers.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	allowed := buildAllowedOrigins(cfg.ExternalURL)
	for _, o := range cfg.CORSOrigins {
		allowed[strings.ToLower(strings.TrimSpace(o))] = true
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed[strings.ToLower(origin)]
		},
		AllowMethods:     []string{"GET", "PUT", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "X-Requested-With", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}

// NewRouter builds and returns the http.Handler plus a stop function that
// releases the router's background workers (rate limiter, stylesheet cache).
func NewRouter(cfg config.Config, wsHub *handler.WSHub) (http.Handler, func()) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), corsMiddleware(cfg))
	r.SetHTMLTemplate(handler.Templates())

	saveMW, stopLimiter := middleware.SaveRateLimiter(cfg)

	prefsH := handler.NewPreferencesHandler(cfg)
	systemH := handler.NewSystemHandler(wsHub)

	// --- Page (form submit + stylesheet) ---
	r.GET("/", prefsH.Page)
	r.POST("/preferences", saveMW, prefsH.Submit)
	r.GET("/preferences.css", prefsH.Stylesheet)
	r.GET("/app.js", prefsH.Script)

	// --- JSON API (control change events) ---
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/preferences", prefsH.Get)
		apiGroup.PUT("/preferences/:key", saveMW, prefsH.Update)
	}

	// Live preview of input events.
	r.GET("/socket", handler.PreviewSocketHandler(wsHub, cfg.CookieTTLDays))

	// Health probe for container orchestrators.
	r.GET("/health", systemH.HealthLive)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	stop := func() {
		stopLimiter()
		prefsH.Stop()
	}
	return r, stop
}

// buildAllowedOrigins returns a set of lower-cased origin strings that are
// allowed to make credentialed cross-origin requests. It derives the origins
// from the configured ExternalURL and also includes its http/https counterpart
// so that both schemes work during development.
func buildAllowedOrigins(externalURL string) map[string]bool {
	origins := make(map[string]bool)
	if externalURL == "" {
		return origins
	}
	parsed, err := url.Parse(externalURL)
	if err != nil {
		origins[strings.ToLower(externalURL)] = true
		return origins
	}
	// Origin = scheme://host (no trailing slash, no path).
	origin := strings.ToLower(parsed.Scheme + "://" + parsed.Host)
	origins[origin] = true
	// Also allow the opposite scheme so http↔https both work.
	switch parsed.Scheme {
	case "https":
		origins["http://"+strings.ToLower(parsed.Host)] = true
	case "http":
		origins["https://"+strings.ToLower(parsed.Host)] = true
	}
	return origins
}
