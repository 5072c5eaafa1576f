package tournamentrouter

import (
	"context"
	"log/slog"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamenthandlers "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/handlers"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/handlerwrapper"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// TournamentRouter handles Watermill handler registration for tournament events.
type TournamentRouter struct {
	logger *slog.Logger
	router *message.Router
	// subscriber shares work across instances; live delivers every event to
	// every instance so each can reach its own websocket clients.
	subscriber message.Subscriber
	live       message.Subscriber
	publisher  message.Publisher
	metrics    metrics.OperationMetrics
	tracer     trace.Tracer
}

func NewTournamentRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	live message.Subscriber,
	publisher message.Publisher,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
) *TournamentRouter {
	return &TournamentRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		live:       live,
		publisher:  publisher,
		metrics:    m,
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *TournamentRouter) Configure(_ context.Context, handlers *tournamenthandlers.Handlers) error {
	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	metrics    metrics.OperationMetrics
	tracer     trace.Tracer
}

func (r *TournamentRouter) registerHandlers(handlers *tournamenthandlers.Handlers) {
	shared := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		metrics:    r.metrics,
		tracer:     r.tracer,
	}

	r.logger.Info("Registering tournament module handlers",
		slog.String("battle_finished_subject", battledomain.BattleFinishedTopic),
		slog.Bool("live_updates", r.live != nil),
	)

	registerHandler(shared, battledomain.BattleFinishedTopic, handlers.HandleBattleFinished)

	if r.live != nil {
		live := shared
		live.subscriber = r.live
		registerHandler(live, tournamentdomain.UpdatedTopic, handlers.HandleTournamentUpdated)
		registerHandler(live, tournamentdomain.CompletedTopic, handlers.HandleTournamentCompleted)
	}

	r.logger.Info("Tournament module handlers registered successfully")
}

// registerHandler is a generic function for type-safe Watermill handler registration.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "tournament." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.metrics,
			handler,
		),
	)
}
