package handlers

import (
	"context"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/districtcms/backend/pkg/search"
)

var startTime = time.Now()

// HealthHandler answers liveness/readiness probes and a detailed status
// endpoint covering the database and search cluster.
type HealthHandler struct {
	db     *sqlx.DB
	search *search.Client
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(db *sqlx.DB, searchClient *search.Client) *HealthHandler {
	return &HealthHandler{db: db, search: searchClient}
}

// componentStatus is one dependency's health as reported by Ready and Status.
type componentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Live answers a liveness probe: if the process can respond, it's alive.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive", "timestamp": time.Now()})
}

// Ready answers a readiness probe: the database and search cluster must
// both be reachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	components := []componentStatus{h.databaseStatus(ctx), h.searchStatus(ctx)}
	ready := true
	for _, comp := range components {
		if comp.Status != "healthy" {
			ready = false
		}
	}

	status := fiber.StatusOK
	if !ready {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"ready": ready, "checks": components})
}

// Status returns detailed system and dependency status, grounded on the
// runtime/gopsutil metrics the rest of this corpus surfaces.
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent, _ := cpu.PercentWithContext(ctx, 0, false)
	memInfo, _ := mem.VirtualMemoryWithContext(ctx)

	components := []componentStatus{h.databaseStatus(ctx), h.searchStatus(ctx)}
	overall := "healthy"
	for _, comp := range components {
		if comp.Status != "healthy" {
			overall = "degraded"
		}
	}

	response := fiber.Map{
		"status":    overall,
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
		"system": fiber.Map{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": m.Alloc,
			"num_gc":     m.NumGC,
			"memory_used_percent": func() float64 {
				if memInfo != nil {
					return memInfo.UsedPercent
				}
				return 0
			}(),
			"cpu_percent": func() float64 {
				if len(cpuPercent) > 0 {
					return cpuPercent[0]
				}
				return 0
			}(),
		},
		"components": components,
	}

	status := fiber.StatusOK
	if overall != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(response)
}

func (h *HealthHandler) databaseStatus(ctx context.Context) componentStatus {
	comp := componentStatus{Name: "database", Status: "healthy"}
	if err := h.db.PingContext(ctx); err != nil {
		comp.Status = "unhealthy"
		comp.Error = err.Error()
	}
	return comp
}

func (h *HealthHandler) searchStatus(ctx context.Context) componentStatus {
	comp := componentStatus{Name: "search", Status: "healthy"}
	if h.search == nil {
		comp.Status = "unhealthy"
		comp.Error = "search client not configured"
		return comp
	}
	if err := h.search.Ping(ctx); err != nil {
		comp.Status = "unhealthy"
		comp.Error = err.Error()
	}
	return comp
}
