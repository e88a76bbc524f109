package item

// Recipe is a crafting rule the survival logic can ask about. The engine
// only decides which recipe to request; the host performs the craft.
type Recipe struct {
	Output Item
	Count  int
	Inputs map[Item]int
}

var (
	RecipePlanks        = Recipe{Output: Planks, Count: 4, Inputs: map[Item]int{Log: 1}}
	RecipeSticks        = Recipe{Output: Stick, Count: 4, Inputs: map[Item]int{Planks: 2}}
	RecipeWoodenPickaxe = Recipe{Output: WoodenPickaxe, Count: 1, Inputs: map[Item]int{Planks: 3, Stick: 2}}
	RecipeStonePickaxe  = Recipe{Output: StonePickaxe, Count: 1, Inputs: map[Item]int{Cobblestone: 3, Stick: 2}}
	RecipeShield        = Recipe{Output: Shield, Count: 1, Inputs: map[Item]int{IronIngot: 1, Planks: 6}}
	RecipeBread         = Recipe{Output: Bread, Count: 1, Inputs: map[Item]int{Wheat: 3}}
)

// ToolRecipes lists tool recipes, best first.
var ToolRecipes = []Recipe{RecipeStonePickaxe, RecipeWoodenPickaxe}

// CanCraft reports whether inv holds every input of r.
func (inv Inventory) CanCraft(r Recipe) bool {
	for it, n := range r.Inputs {
		if inv[it] < n {
			return false
		}
	}
	return true
}

// Craft consumes the inputs of r and adds its output. It reports false
// and leaves inv unchanged when an input is missing.
func (inv Inventory) Craft(r Recipe) bool {
	if !inv.CanCraft(r) {
		return false
	}
	for it, n := range r.Inputs {
		inv.Take(it, n)
	}
	inv.Add(r.Output, r.Count)
	return true
}
