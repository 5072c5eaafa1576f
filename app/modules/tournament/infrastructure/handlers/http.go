package tournamenthandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	tournamentservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentlive "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/realtime"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/httpx"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// LiveHub is the websocket fan-out used by the handlers.
type LiveHub interface {
	Serve(w http.ResponseWriter, r *http.Request, room string) error
	Broadcast(msg tournamentlive.Message)
}

// Handlers serves /api/ranked/tournaments and consumes tournament events.
type Handlers struct {
	service tournamentservice.Service
	hub     LiveHub
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewTournamentHandlers(service tournamentservice.Service, hub LiveHub, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, hub: hub, logger: logger, tracer: tracer}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/records", h.HandleListRecords)
	r.Get("/records.xlsx", h.HandleExportRecords)
	r.Get("/{id}", h.HandleGet)
	r.Post("/{id}/join", h.HandleJoin)
	r.Post("/{id}/matches/{matchId}/join", h.HandleJoinMatch)
	r.Get("/{id}/live", h.HandleLive)
}

func failureStatus(err error) int {
	switch {
	case errors.Is(err, tournamentservice.ErrPermissionDenied),
		errors.Is(err, tournamentservice.ErrNotClanMember),
		errors.Is(err, tournamentservice.ErrNotInMatch):
		return http.StatusForbidden
	case errors.Is(err, tournamentservice.ErrTournamentNotFound),
		errors.Is(err, tournamentservice.ErrMatchNotFound),
		errors.Is(err, tournamentservice.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, tournamentdomain.ErrInvalidTournament):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if tournamentservice.IsFailure(err) {
		httpx.Fail(w, failureStatus(err), err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "Tournament request failed",
		attr.ExtractCorrelationID(r.Context()),
		attr.String("operation", op),
		attr.Error(err),
	)
	httpx.InternalError(w)
}

func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TournamentHandlers.HandleGet")
	defer span.End()

	view, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get", err)
		return
	}
	if view == nil {
		httpx.Fail(w, http.StatusNotFound, tournamentservice.ErrTournamentNotFound.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TournamentHandlers.HandleCreate")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var draft tournamentdomain.Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.service.Create(ctx, actor, draft)
	if err != nil {
		h.writeError(w, r, "create", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.Envelope{Success: true, Message: "Tournament created", Data: t})
}

func (h *Handlers) HandleJoin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TournamentHandlers.HandleJoin")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	m, err := h.service.Join(ctx, actor.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "join", err)
		return
	}
	httpx.OK(w, "Joined tournament", m)
}

func (h *Handlers) HandleJoinMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TournamentHandlers.HandleJoinMatch")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	matchID, err := uuid.Parse(chi.URLParam(r, "matchId"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid match id")
		return
	}

	res, err := h.service.JoinMatch(ctx, actor.UserID, chi.URLParam(r, "id"), matchID)
	if err != nil {
		h.writeError(w, r, "join_match", err)
		return
	}
	msg := "Battle started"
	if res.Forfeit {
		msg = "Battle could not start, match awarded to you"
	}
	httpx.OK(w, msg, res)
}

func (h *Handlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TournamentHandlers.HandleListRecords")
	defer span.End()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.Fail(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := h.service.ListRecords(ctx, limit)
	if err != nil {
		h.writeError(w, r, "records", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, records)
}

func (h *Handlers) HandleExportRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TournamentHandlers.HandleExportRecords")
	defer span.End()

	data, err := h.service.ExportRecords(ctx)
	if err != nil {
		h.writeError(w, r, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tournament-records.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleLive streams bracket changes for one tournament over a websocket.
func (h *Handlers) HandleLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.hub == nil {
		httpx.Fail(w, http.StatusServiceUnavailable, "live updates are disabled")
		return
	}
	if err := h.hub.Serve(w, r, id); err != nil {
		h.logger.WarnContext(r.Context(), "Live upgrade failed",
			attr.ExtractCorrelationID(r.Context()),
			attr.String("tournament_id", id),
			attr.Error(err),
		)
	}
}
