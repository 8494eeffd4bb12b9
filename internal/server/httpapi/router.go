package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/metrics"
)

// NewRouter builds the gin engine. m may be nil, in which case neither
// request metrics nor /metrics are served.
func NewRouter(h *Handler, secret []byte, logger logging.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger.With("module", "http")))
	if m != nil {
		r.Use(Instrument(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", JWTAuth(secret))
	{
		files := api.Group("/files")
		files.POST("/upload", h.Upload)
		files.GET("/my-files", h.MyFiles)
		files.GET("/:id", h.GetFile)
		files.GET("/:id/download", h.Download)
		files.DELETE("/:id", h.DeleteFile)

		tasks := api.Group("/tasks/:taskId/attachments")
		tasks.POST("", h.Attach)
		tasks.GET("", h.ListAttachments)
		tasks.DELETE("/:attachmentId", h.Detach)
	}

	return r
}
