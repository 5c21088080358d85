package handler

import (
	"github.com/gwon-omega/eduflow-server/internal/cache"
	"github.com/gwon-omega/eduflow-server/internal/notify"
	"github.com/gwon-omega/eduflow-server/pkg/jwtutil"
)

var (
	jwtUtil     *jwtutil.JWTUtil
	notifier    *notify.Service
	tenantCache *cache.TenantCache
)

// Init wires the package-level collaborators handlers depend on. Called once
// from main before routes are registered.
func Init(j *jwtutil.JWTUtil, n *notify.Service, tc *cache.TenantCache) {
	jwtUtil = j
	notifier = n
	tenantCache = tc
}
