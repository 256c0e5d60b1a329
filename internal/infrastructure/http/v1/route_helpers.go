package v1

import (
	"github.com/gin-gonic/gin"

	"glasserp/internal/core/security"
	"glasserp/internal/infrastructure/http/v1/middleware"
)

// ResourceRouteHandler is the list/create/get trio most master data and
// documents expose.
type ResourceRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// ResourceUpdater is an optional interface for resources replaced with PUT.
type ResourceUpdater interface {
	Update(c *gin.Context)
}

// RegisterResourceRoutes registers the standard routes of a resource guarded
// by module. If the handler also implements ResourceUpdater, PUT /:id is
// registered too.
//
// Usage:
//
//	handler := handlers.NewCustomerHandler(base, cfg.Services.Customers)
//	RegisterResourceRoutes(erp.Group("/customers"), handler, security.ModuleCustomers)
func RegisterResourceRoutes(group *gin.RouterGroup, handler ResourceRouteHandler, module security.Module) {
	guard := middleware.RequireModule(module)
	group.GET("", guard, handler.List)
	group.POST("", guard, handler.Create)
	group.GET("/:id", guard, handler.Get)

	if updater, ok := handler.(ResourceUpdater); ok {
		group.PUT("/:id", guard, updater.Update)
	}
}
