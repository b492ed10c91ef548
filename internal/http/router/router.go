package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/librenews/skywire/internal/http/handler"
)

const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
	StatusPath  = "/status"
)

func SetupRoutes(router *gin.Engine, ops *handler.OpsHandler, gatherer prometheus.Gatherer) {
	router.GET(HealthPath, ops.Health)
	router.GET(StatusPath, ops.Status)
	router.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
