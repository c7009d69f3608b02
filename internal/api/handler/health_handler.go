package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthHandler handles GET /health, the liveness probe.
// Returns 503 when required configuration is missing.
type HealthHandler struct {
	env     string
	missing []string
	now     func() time.Time
}

func NewHealthHandler(env string, missingVars []string) *HealthHandler {
	return &HealthHandler{env: env, missing: missingVars, now: time.Now}
}

type livenessResponse struct {
	Status      string   `json:"status"`
	Timestamp   string   `json:"timestamp"`
	Environment string   `json:"environment"`
	MissingVars []string `json:"missingVars"`
}

// Liveness godoc
//
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  livenessResponse
// @Failure      503  {object}  livenessResponse
// @Router       /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	resp := livenessResponse{
		Status:      "ok",
		Timestamp:   h.now().UTC().Format(time.RFC3339),
		Environment: h.env,
		MissingVars: []string{},
	}
	status := http.StatusOK
	if len(h.missing) > 0 {
		resp.Status = "error"
		resp.MissingVars = h.missing
		status = http.StatusServiceUnavailable
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store, max-age=0")
	return c.JSON(status, resp)
}

// MailVerifier is satisfied by the SMTP sender.
type MailVerifier interface {
	Verify(ctx context.Context) error
}

// HealthDependenciesHandler handles GET /health/ready, the readiness probe.
// Checks PostgreSQL, and Redis, MongoDB and SMTP when configured.
type HealthDependenciesHandler struct {
	postgres *pgxpool.Pool
	redis    *redis.Client
	mongo    *mongo.Database
	mail     MailVerifier
}

// NewHealthDependenciesHandler accepts nil for any dependency that is not configured.
func NewHealthDependenciesHandler(pool *pgxpool.Pool, rdb *redis.Client, mdb *mongo.Database, mail MailVerifier) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{
		postgres: pool,
		redis:    rdb,
		mongo:    mdb,
		mail:     mail,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness godoc
//
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			return
		}
		deps[name] = dependencyStatus{Status: "ok"}
	}

	if h.postgres == nil {
		deps["postgres"] = dependencyStatus{Status: "unhealthy", Error: "not configured"}
		healthy = false
	} else {
		check("postgres", h.postgres.Ping(ctx))
	}

	if h.redis != nil {
		check("redis", h.redis.Ping(ctx).Err())
	}

	if h.mongo != nil {
		err := h.mongo.Client().Ping(ctx, nil)
		if err == nil {
			err = h.mongo.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		}
		check("mongodb", err)
	}

	// SMTP reachability is reported but does not fail readiness.
	if h.mail != nil {
		if err := h.mail.Verify(ctx); err != nil {
			deps["smtp"] = dependencyStatus{Status: "degraded", Error: err.Error()}
		} else {
			deps["smtp"] = dependencyStatus{Status: "ok"}
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
