package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/metrics"
)

// NewRouter wires the HTTP surface. The function-key gate covers every API
// route except content download, which is protected by the per-tenant access
// credential instead.
func NewRouter(h *Handlers, m *metrics.Metrics, gatherer prometheus.Gatherer,
	logger logging.Logger, functionKeyHash string) *gin.Engine {

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), Observe(m))

	api := r.Group("/api", FunctionKey(functionKeyHash))
	{
		api.POST("/upload", h.Upload)
		api.GET("/getFile", h.GetFile)
		api.GET("/files/:userId", h.ListFiles)
		api.DELETE("/deleteFile", h.DeleteFile)
		api.PUT("/renameFile", h.RenameFile)
		api.POST("/shareOperation", h.ShareOperation)
		api.GET("/bron", h.AdHocQuery)
		api.GET("/time", h.CurrentTime)
		api.POST("/time", h.CurrentTime)
	}

	r.GET("/api/content/:userId/*fileName", h.Content)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}
