package loadouthandlers

import (
	"log/slog"
	"net/http"

	loadoutservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/application"
	loadoutdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/httpx"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// Handlers serves /api/ranked/loadout.
type Handlers struct {
	service loadoutservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewLoadoutHandlers(service loadoutservice.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, logger: logger, tracer: tracer}
}

// Routes mounts the handlers on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.HandleGetLoadout)
	r.Put("/", h.HandleUpdateLoadout)
}

func (h *Handlers) HandleGetLoadout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LoadoutHandlers.HandleGetLoadout")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	l, err := h.service.GetLoadout(ctx, actor.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load loadout", attr.ExtractCorrelationID(ctx), attr.UserID(actor.UserID), attr.Error(err))
		httpx.InternalError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, l)
}

func (h *Handlers) HandleUpdateLoadout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LoadoutHandlers.HandleUpdateLoadout")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var sel loadoutdomain.Selection
	if err := httpx.DecodeJSON(r, &sel); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := h.service.UpdateLoadout(ctx, actor.UserID, sel)
	switch {
	case err == nil:
		httpx.OK(w, "Loadout updated", l)
	case loadoutservice.IsFailure(err):
		httpx.Fail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.ErrorContext(ctx, "Failed to update loadout", attr.ExtractCorrelationID(ctx), attr.UserID(actor.UserID), attr.Error(err))
		httpx.InternalError(w)
	}
}
