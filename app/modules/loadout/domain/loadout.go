// Package loadoutdomain holds the ranked loadout limits and selection rules.
package loadoutdomain

import (
	"fmt"
	"sort"
)

const (
	MaxJutsus      = 10
	MaxWeapons     = 3
	MaxConsumables = 5
)

// ItemType is the catalog category of an item.
type ItemType string

const (
	ItemTypeWeapon     ItemType = "WEAPON"
	ItemTypeConsumable ItemType = "CONSUMABLE"
	ItemTypeArmor      ItemType = "ARMOR"
	ItemTypeAccessory  ItemType = "ACCESSORY"
	ItemTypeMaterial   ItemType = "MATERIAL"
)

// Selection is a requested loadout. Duplicate ids collapse.
type Selection struct {
	JutsuIDs      []string `json:"jutsuIds"`
	WeaponIDs     []string `json:"weaponIds"`
	ConsumableIDs []string `json:"consumableIds"`
}

// Normalize dedupes and sorts every set.
func (s Selection) Normalize() Selection {
	return Selection{
		JutsuIDs:      uniqueSorted(s.JutsuIDs),
		WeaponIDs:     uniqueSorted(s.WeaponIDs),
		ConsumableIDs: uniqueSorted(s.ConsumableIDs),
	}
}

// CheckBounds enforces the per-set maximums.
func (s Selection) CheckBounds() error {
	switch {
	case len(s.JutsuIDs) > MaxJutsus:
		return fmt.Errorf("too many jutsus selected: %d > %d", len(s.JutsuIDs), MaxJutsus)
	case len(s.WeaponIDs) > MaxWeapons:
		return fmt.Errorf("too many weapons selected: %d > %d", len(s.WeaponIDs), MaxWeapons)
	case len(s.ConsumableIDs) > MaxConsumables:
		return fmt.Errorf("too many consumables selected: %d > %d", len(s.ConsumableIDs), MaxConsumables)
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
