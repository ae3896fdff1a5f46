package dispatcher

import (
	apphttp "caseflow_backend/internal/http"

	"github.com/gin-gonic/gin"

	"caseflow_backend/platform/httpkit"
)

// Module exposes the dispatcher tick endpoint, implementing http.Module.
// The route sits on the shared-secret group so only trusted machine
// callers (an external timer, a sibling service) can trigger a run.
type Module struct {
	dispatcher *Dispatcher
}

func NewModule(d *Dispatcher) *Module {
	return &Module{dispatcher: d}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dispatcher"
}

// RegisterRoutes mounts the tick endpoint on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Internal.POST("/dispatcher/tick", m.Tick)
}

// Tick runs one dispatcher batch synchronously and returns its counts.
// POST /api/v1/dispatcher/tick
func (m *Module) Tick(c *gin.Context) {
	result, err := m.dispatcher.Run(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

var _ apphttp.Module = (*Module)(nil)
