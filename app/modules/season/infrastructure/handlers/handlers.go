package seasonhandlers

import (
	"errors"
	"log/slog"
	"net/http"

	seasonservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/application"
	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/httpx"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// ChartRenderer turns a division distribution into a PNG.
type ChartRenderer func(title string, counts []seasondb.DivisionCount) ([]byte, error)

// Handlers serves /api/ranked/seasons.
type Handlers struct {
	service seasonservice.Service
	chart   ChartRenderer
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewSeasonHandlers(service seasonservice.Service, chart ChartRenderer, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	if chart == nil {
		chart = seasonservice.GenerateDivisionChart
	}
	return &Handlers{service: service, chart: chart, logger: logger, tracer: tracer}
}

// Routes mounts the handlers on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.HandleListSeasons)
	r.Post("/", h.HandleCreateSeason)
	r.Get("/current", h.HandleCurrentSeason)
	r.Get("/rewards", h.HandleUnclaimedRewards)
	r.Post("/rewards/claim", h.HandleClaimRewards)
	r.Put("/{id}", h.HandleUpdateSeason)
	r.Delete("/{id}", h.HandleDeleteSeason)
	r.Post("/{id}/end", h.HandleEndSeason)
	r.Get("/{id}/divisions.png", h.HandleDivisionChart)
}

// failureStatus maps an expected rejection to its HTTP status.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, seasonservice.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, seasonservice.ErrSeasonNotFound):
		return http.StatusNotFound
	case errors.Is(err, seasondomain.ErrInvalidSeason):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if seasonservice.IsFailure(err) {
		httpx.Fail(w, failureStatus(err), err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "Season request failed",
		attr.ExtractCorrelationID(r.Context()),
		attr.String("operation", op),
		attr.Error(err),
	)
	httpx.InternalError(w)
}

func (h *Handlers) HandleCurrentSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleCurrentSeason")
	defer span.End()

	season, err := h.service.GetCurrentSeason(ctx)
	if err != nil {
		h.writeError(w, r, "current", err)
		return
	}
	if season == nil {
		httpx.OK(w, "No active season", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, season)
}

func (h *Handlers) HandleListSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleListSeasons")
	defer span.End()

	seasons, err := h.service.ListSeasons(ctx)
	if err != nil {
		h.writeError(w, r, "list", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, seasons)
}

func (h *Handlers) HandleCreateSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleCreateSeason")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var draft seasondomain.Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	season, err := h.service.CreateSeason(ctx, actor, draft)
	if err != nil {
		h.writeError(w, r, "create", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.Envelope{Success: true, Message: "Season created", Data: season})
}

func (h *Handlers) HandleUpdateSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleUpdateSeason")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var draft seasondomain.Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	season, err := h.service.UpdateSeason(ctx, actor, chi.URLParam(r, "id"), draft)
	if err != nil {
		h.writeError(w, r, "update", err)
		return
	}
	httpx.OK(w, "Season updated", season)
}

func (h *Handlers) HandleDeleteSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleDeleteSeason")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.service.DeleteSeason(ctx, actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete", err)
		return
	}
	httpx.OK(w, "Season deleted", nil)
}

func (h *Handlers) HandleEndSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleEndSeason")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.service.EndSeason(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "end", err)
		return
	}
	httpx.OK(w, "Season ended", res)
}

func (h *Handlers) HandleUnclaimedRewards(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleUnclaimedRewards")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rewards, err := h.service.GetUnclaimedRewards(ctx, actor.UserID)
	if err != nil {
		h.writeError(w, r, "unclaimed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rewards)
}

func (h *Handlers) HandleClaimRewards(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleClaimRewards")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.service.ClaimRewards(ctx, actor.UserID)
	if err != nil {
		h.writeError(w, r, "claim", err)
		return
	}
	httpx.OK(w, "Rewards claimed", res)
}

func (h *Handlers) HandleDivisionChart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SeasonHandlers.HandleDivisionChart")
	defer span.End()

	id := chi.URLParam(r, "id")
	counts, err := h.service.DivisionDistribution(ctx, id)
	if err != nil {
		h.writeError(w, r, "divisions", err)
		return
	}
	png, err := h.chart("Division distribution", counts)
	if err != nil {
		h.writeError(w, r, "divisions", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
