// Package rewards defines the reward bundle paid out by seasons and
// tournaments.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
)

// ItemReward grants Quantity copies of an item.
type ItemReward struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Bundle is a set of rewards; each reward kind is a field.
type Bundle struct {
	Money      int64        `json:"money,omitempty"`
	Reputation int64        `json:"reputation,omitempty"`
	Items      []ItemReward `json:"items,omitempty"`
}

// ErrInvalidBundle is returned by Validate.
var ErrInvalidBundle = errors.New("invalid reward bundle")

// IsEmpty reports whether applying the bundle would change nothing.
func (b Bundle) IsEmpty() bool {
	return b.Money == 0 && b.Reputation == 0 && len(b.Items) == 0
}

// Validate rejects negative amounts and malformed item grants.
func (b Bundle) Validate() error {
	if b.Money < 0 || b.Reputation < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidBundle)
	}
	for _, it := range b.Items {
		if it.ItemID == "" || it.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity %d", ErrInvalidBundle, it.ItemID, it.Quantity)
		}
	}
	return nil
}

// Merge sums bundles kind by kind. Items with the same id are combined and
// the result is ordered by item id.
func Merge(bundles ...Bundle) Bundle {
	var out Bundle
	qty := make(map[string]int)
	for _, b := range bundles {
		out.Money += b.Money
		out.Reputation += b.Reputation
		for _, it := range b.Items {
			qty[it.ItemID] += it.Quantity
		}
	}
	if len(qty) == 0 {
		return out
	}
	out.Items = make([]ItemReward, 0, len(qty))
	for id, q := range qty {
		out.Items = append(out.Items, ItemReward{ItemID: id, Quantity: q})
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ItemID < out.Items[j].ItemID })
	return out
}

// Applier credits a bundle to a user. Seasons and tournaments share it.
type Applier interface {
	ApplyRewardBundle(ctx context.Context, db bun.IDB, userID string, bundle Bundle) error
}
