package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/internal/common/logger"
	generateconfig "nginx-config-generator/internal/pipeline/generate-config"
	validatedeclaration "nginx-config-generator/internal/pipeline/validate-declaration"
)

type Options struct {
	Pipeline *generateconfig.Handler
	Logger   logger.Logger
	// Ready reports readiness for /ready. Nil means always ready.
	Ready func() bool
}

// NewRouter builds the HTTP front end of the pipeline.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	errHandler := errors.NewErrorHandler(log)

	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(requestLogger(log))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		if opts.Ready != nil && !opts.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v0 := r.Group("/v0")
	v0.POST("/config", configHandler(opts.Pipeline, log, errHandler))
	v0.GET("/schema", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/schema+json", validatedeclaration.SchemaJSON())
	})

	return r
}

// configHandler runs the pipeline on the request body and writes its
// response, forwarding any headers the output channel set.
func configHandler(pipeline *generateconfig.Handler, log logger.Logger, errHandler *errors.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			errHandler.HandleRequestError(c, errors.NewInvalidRequestBodyError(err))
			return
		}

		id := requestID(c)
		ctx := logger.IntoContext(c.Request.Context(), log.WithFields(map[string]interface{}{"requestId": id}))

		resp, err := pipeline.Execute(ctx, id, raw)
		if c.Request.Context().Err() != nil {
			log.Warn("caller went away, response dropped", map[string]interface{}{"requestId": id})
			c.Abort()
			return
		}
		if err != nil {
			errHandler.HandleRequestError(c, err)
			return
		}

		for name, values := range resp.Header {
			for _, v := range values {
				c.Writer.Header().Add(name, v)
			}
		}
		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Data(resp.StatusCode, contentType, resp.Body)
	}
}
