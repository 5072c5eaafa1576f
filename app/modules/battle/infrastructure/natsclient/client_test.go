package natsclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeRequester struct {
	subject string
	sent    battledomain.Request
	reply   func(ctx context.Context) (*nats.Msg, error)
}

func (f *fakeRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	f.subject = subj
	if err := json.Unmarshal(data, &f.sent); err != nil {
		return nil, err
	}
	return f.reply(ctx)
}

func replyWith(v any) func(context.Context) (*nats.Msg, error) {
	return func(context.Context) (*nats.Msg, error) {
		b, _ := json.Marshal(v)
		return &nats.Msg{Data: b}, nil
	}
}

func TestClient_CreateBattle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	req := battledomain.Request{
		ParticipantIDs: []string{"u1", "u2"},
		ForcedLoadouts: map[string]battledomain.Loadout{"u1": {JutsuIDs: []string{"j1"}}},
		StatOverride:   &battledomain.RankedStats,
		Background:     "arena",
		Kind:           battledomain.KindRankedPvP,
	}

	tests := []struct {
		name    string
		req     battledomain.Request
		reply   func(context.Context) (*nats.Msg, error)
		want    battledomain.Result
		wantErr bool
	}{
		{
			name:  "created",
			req:   req,
			reply: replyWith(battledomain.Result{Success: true, BattleID: "b-1", Message: "ok"}),
			want:  battledomain.Result{Success: true, BattleID: "b-1", Message: "ok"},
		},
		{
			name:  "refused",
			req:   req,
			reply: replyWith(battledomain.Result{Success: false, Message: "user busy"}),
			want:  battledomain.Result{Success: false, Message: "user busy"},
		},
		{
			name:    "success without id",
			req:     req,
			reply:   replyWith(battledomain.Result{Success: true}),
			wantErr: true,
		},
		{
			name: "timeout",
			req:  req,
			reply: func(ctx context.Context) (*nats.Msg, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			wantErr: true,
		},
		{
			name:    "transport error",
			req:     req,
			reply:   func(context.Context) (*nats.Msg, error) { return nil, errors.New("no responders") },
			wantErr: true,
		},
		{
			name:    "invalid request never sent",
			req:     battledomain.Request{ParticipantIDs: []string{"solo"}, Kind: battledomain.KindTournament},
			reply:   func(context.Context) (*nats.Msg, error) { t.Fatal("must not send"); return nil, nil },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRequester{reply: tt.reply}
			c := NewClient(fr, 50*time.Millisecond, logger, tracer)

			got, err := c.CreateBattle(context.Background(), tt.req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, battledomain.CreateBattleSubject, fr.subject)
			assert.Equal(t, tt.req.ParticipantIDs, fr.sent.ParticipantIDs)
			assert.Equal(t, battledomain.RankedStats, *fr.sent.StatOverride)
		})
	}
}
