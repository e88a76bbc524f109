package item

import "sort"

// Inventory is a count of carried items. The zero value is an empty,
// usable inventory; methods that change counts need a non-nil map.
type Inventory map[Item]int

// NewInventory copies counts, dropping non-positive entries.
func NewInventory(counts map[Item]int) Inventory {
	inv := make(Inventory, len(counts))
	for k, v := range counts {
		if v > 0 {
			inv[k] = v
		}
	}
	return inv
}

func (inv Inventory) Count(i Item) int { return inv[i] }
func (inv Inventory) Has(i Item) bool  { return inv[i] > 0 }

// Add increases the count of i by n.
func (inv Inventory) Add(i Item, n int) {
	if n <= 0 {
		return
	}
	inv[i] += n
}

// Take removes n of i. It reports false and changes nothing when fewer are held.
func (inv Inventory) Take(i Item, n int) bool {
	if inv[i] < n {
		return false
	}
	inv[i] -= n
	if inv[i] == 0 {
		delete(inv, i)
	}
	return true
}

// FoodCount is the total number of edible items held.
func (inv Inventory) FoodCount() int {
	n := 0
	for it, c := range inv {
		if it.Edible() {
			n += c
		}
	}
	return n
}

// HasAnyTool reports whether any pickaxe, axe or sword is held.
func (inv Inventory) HasAnyTool() bool {
	for it, c := range inv {
		if c > 0 && it.IsTool() {
			return true
		}
	}
	return false
}

// BestFood returns the preferred edible item held.
func (inv Inventory) BestFood() (Item, bool) { return inv.first(foodPreference) }

// BestHealing returns the strongest healing item held.
func (inv Inventory) BestHealing() (Item, bool) { return inv.first(healingPreference) }

// BestBlock returns a placeable block held.
func (inv Inventory) BestBlock() (Item, bool) { return inv.first(placeablePreference) }

func (inv Inventory) first(pref []Item) (Item, bool) {
	for _, it := range pref {
		if inv[it] > 0 {
			return it, true
		}
	}
	return "", false
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Items lists held item types in name order.
func (inv Inventory) Items() []Item {
	out := make([]Item, 0, len(inv))
	for k, v := range inv {
		if v > 0 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
