package attr

import (
	"context"
	"errors"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "empty context",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "chi request id",
			ctx:  context.WithValue(context.Background(), middleware.RequestIDKey, "req-1"),
			want: "req-1",
		},
		{
			name: "explicit id wins over request id",
			ctx:  WithCorrelationID(context.WithValue(context.Background(), middleware.RequestIDKey, "req-1"), "job-7"),
			want: "job-7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CorrelationID(tt.ctx))
			a := ExtractCorrelationID(tt.ctx)
			assert.Equal(t, "correlation_id", a.Key)
			assert.Equal(t, tt.want, a.Value.String())
		})
	}
}

func TestError(t *testing.T) {
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, "", Error(nil).Value.String())
}
