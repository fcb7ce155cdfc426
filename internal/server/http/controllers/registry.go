package controllers

import (
	"net/http"

	"github.com/rzbill/battlelog/internal/runtime"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	battles *BattlesController
}

// NewControllerRegistry initializes all controllers with the provided runtime and service.
func NewControllerRegistry(rt *runtime.Runtime, svc *battlesvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		battles: NewBattlesController(svc, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.battles.RegisterRoutes(mux)
}
