package domain

// KeyPrefix is the shared key namespace for everything dishdex keeps in Redis/Valkey.
const KeyPrefix = "dishdex:"

// UnknownDishName is shown when no metadata exists for a group.
const UnknownDishName = "Unknown"

// Dish is the display record for one group (dish class).
type Dish struct {
	ID          string   `json:"dish_id"`
	Name        string   `json:"name"`
	Intro       string   `json:"intro"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

// UnknownDish returns the default record used when a lookup misses or fails.
func UnknownDish(group string) Dish {
	return Dish{
		ID:          group,
		Name:        UnknownDishName,
		Intro:       "",
		Ingredients: []string{},
		Steps:       []string{},
	}
}

// Normalized fills missing fields so the record always serializes with empty lists, not nulls.
func (d Dish) Normalized(group string) Dish {
	if d.ID == "" {
		d.ID = group
	}
	if d.Name == "" {
		d.Name = UnknownDishName
	}
	if d.Ingredients == nil {
		d.Ingredients = []string{}
	}
	if d.Steps == nil {
		d.Steps = []string{}
	}
	return d
}
