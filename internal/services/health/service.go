package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Check is one named dependency check.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Report is the readiness payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Service runs readiness checks against the configured dependencies.
type Service struct {
	Checks  []Check
	Timeout time.Duration
}

// NewService builds a health service. A nil db is reported as "disabled".
func NewService(db Pinger) *Service {
	s := &Service{Timeout: 2 * time.Second}
	if db != nil {
		s.Checks = append(s.Checks, Check{Name: "db", Ping: db.PingContext})
	}
	return s
}

// Liveness reports that the process is serving.
func (s *Service) Liveness() map[string]bool {
	return map[string]bool{"ok": true}
}

// Readiness pings every dependency and reports per-check status.
func (s *Service) Readiness(ctx context.Context) Report {
	report := Report{OK: true, Checks: map[string]string{}}
	if len(s.Checks) == 0 {
		report.Checks["db"] = "disabled"
		return report
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	for _, check := range s.Checks {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Ping(pingCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[check.Name] = "unhealthy: " + err.Error()
			continue
		}
		report.Checks[check.Name] = "ok"
	}
	return report
}
