package battleservice

import (
	"context"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
)

// Initiator creates battles. A transport failure is an error; a refusal by
// the battle service is a Result with Success false.
type Initiator interface {
	CreateBattle(ctx context.Context, req battledomain.Request) (battledomain.Result, error)
}
