// Package gang defines the gang entity of the yard simulation.
// This package is PURE and must NOT import any infrastructure packages.
package gang

// ItemKind names goods a gang holds collectively.
type ItemKind string

const (
	ItemCigarettes ItemKind = "cigarettes"
	ItemPhone      ItemKind = "phone"
	ItemShank      ItemKind = "shank"
	ItemChain      ItemKind = "chain"
	ItemGun        ItemKind = "gun"
)

// Gang is a crew competing for the yard.
type Gang struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Color            string     `json:"color"`
	TerritoryControl float64    `json:"territory_control"` // 0-100, % of the prison
	Resources        float64    `json:"resources"`         // 0-100
	Reputation       float64    `json:"reputation"`        // 0-100
	ViolenceTendency float64    `json:"violence_tendency"` // 0-100
	Money            float64    `json:"money"`
	TotalEarnings    float64    `json:"total_earnings"`
	DrugStash        float64    `json:"drug_stash"` // grams
	Items            []ItemKind `json:"items"`
	LeaderID         string     `json:"leader_id,omitempty"`
}

// Template seeds a gang at simulation start.
type Template struct {
	Name  string
	Color string
}

// Roster lists the crews the yard starts with, in creation order.
var Roster = []Template{
	{Name: "Los Carniceros", Color: "#c0392b"},
	{Name: "Iron Brotherhood", Color: "#7f8c8d"},
	{Name: "Southside Kings", Color: "#8e44ad"},
	{Name: "Black Widows", Color: "#2c3e50"},
	{Name: "Cell Block Saints", Color: "#2980b9"},
	{Name: "Yard Dogs", Color: "#d35400"},
}

// New creates a gang with even starting stats.
func New(id string, t Template) Gang {
	return Gang{
		ID:               id,
		Name:             t.Name,
		Color:            t.Color,
		TerritoryControl: 20,
		Resources:        50,
		Reputation:       50,
		ViolenceTendency: 50,
		Items:            []ItemKind{},
	}
}

// Clone returns a deep copy.
func (g Gang) Clone() Gang {
	c := g
	c.Items = append([]ItemKind(nil), g.Items...)
	return c
}

// Clamp enforces the numeric invariants after a mutation.
func (g *Gang) Clamp() {
	g.TerritoryControl = Percent(g.TerritoryControl)
	g.Resources = Percent(g.Resources)
	g.Reputation = Percent(g.Reputation)
	g.ViolenceTendency = Percent(g.ViolenceTendency)
	g.Money = NonNegative(g.Money)
	g.TotalEarnings = NonNegative(g.TotalEarnings)
	g.DrugStash = NonNegative(g.DrugStash)
}

// AddItem records a collectively held item.
func (g *Gang) AddItem(k ItemKind) {
	g.Items = append(g.Items, k)
}

// Percent clamps v to [0, 100].
func Percent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NonNegative clamps v to [0, +inf).
func NonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
