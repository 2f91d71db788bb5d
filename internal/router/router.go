// internal/router/router.go
package router

import (
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"keytrace-go/internal/config"
	"keytrace-go/internal/enrollment"
	"keytrace-go/internal/handlers"
	"keytrace-go/internal/matcher"
	"keytrace-go/internal/monitor"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again later.")
}

// Deps are the long-lived engine components the routes are wired over.
type Deps struct {
	Store      *matcher.CachedStore
	Matcher    *matcher.Matcher
	Enrollment *enrollment.Manager
	Aggregator *monitor.Aggregator
	Poller     *monitor.Poller
	Hub        *monitor.Hub
}

func Setup(log *zap.Logger, deps Deps) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	// Handlers
	cfg := config.Conf
	authHandler := handlers.NewAuthHandler(log, deps.Store, deps.Matcher,
		cfg.Enrollment.MinTotalKeystrokes, cfg.Matching.DefaultTopK)
	enrollmentHandler := handlers.NewEnrollmentHandler(log, deps.Enrollment, deps.Store,
		cfg.Capture.BatchSize, time.Duration(cfg.Capture.FlushIntervalSeconds)*time.Second)
	monitorHandler := handlers.NewMonitorHandler(log, deps.Aggregator, deps.Poller, deps.Hub,
		handlers.RepositoryEventStore{}, cfg.Monitoring.SuspiciousRiskScore)
	analysisHandler := handlers.NewAnalysisHandler(log)

	// Enrollment and identification are expensive; rate limit them per IP.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 30,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/enroll", limiter, authHandler.Enroll)
			auth.POST("/verify", limiter, authHandler.Verify)
			auth.POST("/identify", limiter, authHandler.Identify)
			auth.GET("/users", authHandler.Users)
		}

		enroll := api.Group("/enroll")
		{
			enroll.POST("/session", enrollmentHandler.Start)
			enroll.POST("/session/:id/events", enrollmentHandler.AppendEvents)
			enroll.POST("/session/:id/next", enrollmentHandler.Next)
			enroll.POST("/session/:id/submit", limiter, enrollmentHandler.Submit)
			enroll.POST("/session/:id/retry", enrollmentHandler.Retry)
		}

		mon := api.Group("/monitor")
		{
			mon.POST("/events", monitorHandler.IngestEvent)
			mon.GET("/sessions", monitorHandler.ActiveSessions)
			mon.GET("/ws", monitorHandler.ServeWS)
			mon.GET("/export", monitorHandler.Export)
			mon.GET("/charts/:studentId", monitorHandler.StudentChart)
		}

		api.POST("/sessions/analyze", analysisHandler.Analyze)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
