package handlers

import (
	"github.com/drivespace/drivespace/models"
	"github.com/gofiber/adaptor/v2"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics
var (
	totalUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drivespace_total_users",
		Help: "Total number of users",
	})

	totalFolders = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drivespace_total_folders",
		Help: "Total number of folders",
	})

	totalFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drivespace_total_files",
		Help: "Total number of stored files",
	})

	totalStoredBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drivespace_stored_bytes",
		Help: "Total size of stored files in bytes",
	})

	registrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drivespace_registrations_total",
		Help: "Accounts created through the registration form",
	})

	signInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drivespace_sign_ins_total",
		Help: "Sign-in attempts by result",
	}, []string{"result"})
)

func init() {
	// Register metrics
	prometheus.MustRegister(totalUsers)
	prometheus.MustRegister(totalFolders)
	prometheus.MustRegister(totalFiles)
	prometheus.MustRegister(totalStoredBytes)
	prometheus.MustRegister(registrationsTotal)
	prometheus.MustRegister(signInsTotal)
}

// updateMetrics updates all Prometheus gauges with current database values
func updateMetrics() {
	if count, err := models.CountUsers(); err == nil {
		totalUsers.Set(float64(count))
	} else {
		log.Warnf("Failed to get total users for metrics: %v", err)
	}

	if count, err := models.CountFolders(); err == nil {
		totalFolders.Set(float64(count))
	} else {
		log.Warnf("Failed to get total folders for metrics: %v", err)
	}

	if stats, err := models.GetFileStats(); err == nil {
		totalFiles.Set(float64(stats.Count))
		totalStoredBytes.Set(float64(stats.Bytes))
	} else {
		log.Warnf("Failed to get file stats for metrics: %v", err)
	}
}

// HandleMetrics serves Prometheus metrics
func HandleMetrics(c *fiber.Ctx) error {
	// Update metrics before serving
	updateMetrics()

	return adaptor.HTTPHandler(promhttp.Handler())(c)
}

// HandleReady serves the readiness endpoint
func HandleReady(c *fiber.Ctx) error {
	if err := models.PingDB(); err != nil {
		log.Errorf("Database not ready: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}

	return c.SendString("OK")
}

// HandleHealth serves the health endpoint
func HandleHealth(c *fiber.Ctx) error {
	if err := models.PingDB(); err != nil {
		log.Errorf("Database health check failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).SendString("UNHEALTHY")
	}

	// A query also proves the schema is in place.
	if _, err := models.CountUsers(); err != nil {
		log.Errorf("Database query health check failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).SendString("UNHEALTHY")
	}

	return c.SendString("OK")
}
