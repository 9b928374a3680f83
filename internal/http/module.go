// Package http holds the pieces shared by the router and the domain modules.
package http

import "github.com/gin-gonic/gin"

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on. All three
// live under /api/v1.
type RouterContext struct {
	// Public requires no token; modules add their own rate limits.
	Public *gin.RouterGroup
	// Protected requires a valid access token carrying a tenant.
	Protected *gin.RouterGroup
	// Admin additionally requires the admin role and is mounted at /admin.
	Admin *gin.RouterGroup
}
