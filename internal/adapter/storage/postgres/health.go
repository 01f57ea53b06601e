package postgres

import "context"

// HealthCheck reports database reachability for the health endpoint.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	_, err := h.pool.Exec(ctx, "SELECT 1")
	return err
}

func (h *HealthCheck) Name() string { return "postgresql" }
