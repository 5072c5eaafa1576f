// Package natsclient calls the battle service over NATS request-reply.
package natsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	battleservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/application"
	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single CreateBattle round trip.
const DefaultTimeout = 5 * time.Second

// Requester is the part of *nats.Conn the client needs.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client implements battleservice.Initiator.
type Client struct {
	conn    Requester
	subject string
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

var _ battleservice.Initiator = (*Client)(nil)

func NewClient(conn Requester, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		conn:    conn,
		subject: battledomain.CreateBattleSubject,
		timeout: timeout,
		logger:  logger,
		tracer:  tracer,
	}
}

func (c *Client) CreateBattle(ctx context.Context, req battledomain.Request) (battledomain.Result, error) {
	ctx, span := c.tracer.Start(ctx, "BattleClient.CreateBattle", trace.WithAttributes(
		attribute.String("battle.kind", string(req.Kind)),
		attribute.Int("battle.participants", len(req.ParticipantIDs)),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		return battledomain.Result{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return battledomain.Result{}, fmt.Errorf("marshal battle request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, c.subject, body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			err = fmt.Errorf("battle service timed out after %s: %w", c.timeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.logger.ErrorContext(ctx, "Battle request failed",
			attr.ExtractCorrelationID(ctx),
			attr.String("battle_kind", string(req.Kind)),
			attr.Error(err),
		)
		return battledomain.Result{}, fmt.Errorf("create battle: %w", err)
	}

	var res battledomain.Result
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		span.RecordError(err)
		return battledomain.Result{}, fmt.Errorf("decode battle reply: %w", err)
	}
	if res.Success && res.BattleID == "" {
		return battledomain.Result{}, errors.New("battle service reported success without a battle id")
	}

	span.SetAttributes(attribute.Bool("battle.success", res.Success), attribute.String("battle.id", res.BattleID))
	return res, nil
}
