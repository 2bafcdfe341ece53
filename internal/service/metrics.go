package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"go-gin-gorm-rbac/internal/domain"
)

var (
	roleChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "role_changes_total", Help: "Committed role changes"},
		[]string{"direction"}, // promotion / demotion / none
	)
	permissionDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "permission_denied_total", Help: "Refused management actions"},
		[]string{"action"},
	)
)

func init() { prometheus.MustRegister(roleChanges, permissionDenied) }

func direction(h *domain.UserRoleHistory) string {
	switch {
	case h.WasPromotion():
		return "promotion"
	case h.WasDemotion():
		return "demotion"
	default:
		return "none"
	}
}
