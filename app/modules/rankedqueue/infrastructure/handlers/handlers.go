package rankedqueuehandlers

import (
	"errors"
	"log/slog"
	"net/http"

	rankedqueueservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/application"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/httpx"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// Handlers serves /api/ranked/queue.
type Handlers struct {
	service rankedqueueservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewQueueHandlers(service rankedqueueservice.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, logger: logger, tracer: tracer}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/enqueue", h.HandleEnqueue)
	r.Post("/leave", h.HandleLeave)
	r.Get("/status", h.HandleStatus)
	r.Post("/match", h.HandleMatch)
}

func (h *Handlers) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QueueHandlers.HandleEnqueue")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.service.Enqueue(ctx, actor.UserID)
	if err != nil {
		h.writeError(w, r, actor.UserID, err)
		return
	}
	msg := "Joined the ranked queue"
	if res.Match.Matched && res.Match.Includes(actor.UserID) {
		msg = "Match found"
	}
	httpx.OK(w, msg, res)
}

func (h *Handlers) HandleLeave(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QueueHandlers.HandleLeave")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.service.LeaveQueue(ctx, actor.UserID); err != nil {
		h.writeError(w, r, actor.UserID, err)
		return
	}
	httpx.OK(w, "Left the ranked queue", nil)
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QueueHandlers.HandleStatus")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	st, err := h.service.Status(ctx, actor.UserID)
	if err != nil {
		h.writeError(w, r, actor.UserID, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *Handlers) HandleMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QueueHandlers.HandleMatch")
	defer span.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.service.PollMatch(ctx, actor.UserID)
	if err != nil {
		h.writeError(w, r, actor.UserID, err)
		return
	}
	msg := "No match yet"
	if res.Matched {
		msg = "Match found"
	}
	httpx.OK(w, msg, res)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, userID string, err error) {
	switch {
	case rankedqueueservice.IsFailure(err):
		httpx.Fail(w, http.StatusConflict, failureMessage(err))
	case errors.Is(err, rankedqueueservice.ErrBattleCreationFailed):
		h.logger.WarnContext(r.Context(), "Battle creation failed during matchmaking", attr.ExtractCorrelationID(r.Context()), attr.UserID(userID), attr.Error(err))
		httpx.Fail(w, http.StatusBadGateway, "Could not start the battle, you are still queued")
	default:
		h.logger.ErrorContext(r.Context(), "Queue request failed", attr.ExtractCorrelationID(r.Context()), attr.UserID(userID), attr.Error(err))
		httpx.InternalError(w)
	}
}

// failureMessage drops the operation prefixes added while the error bubbled up.
func failureMessage(err error) string {
	for _, known := range []error{
		rankedqueueservice.ErrAlreadyInQueue,
		rankedqueueservice.ErrNotAwake,
		rankedqueueservice.ErrNotInQueue,
		rankedqueueservice.ErrNoLoadout,
		rankedqueueservice.ErrUserNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
