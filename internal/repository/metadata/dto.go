package metadata

import "github.com/kailas-cloud/dishdex/internal/domain"

// dishRecord is the persisted shape of a dish. "step" is the historical field name
// of metadata.json; "steps" is accepted as well.
type dishRecord struct {
	DishID      string   `json:"dish_id,omitempty"`
	Name        string   `json:"name"`
	Intro       string   `json:"intro"`
	Ingredients []string `json:"ingredients"`
	Step        []string `json:"step"`
	Steps       []string `json:"steps,omitempty"`
}

func toDomain(group string, r dishRecord) domain.Dish {
	steps := r.Step
	if len(steps) == 0 {
		steps = r.Steps
	}
	id := r.DishID
	if id == "" {
		id = group
	}
	return domain.Dish{
		ID:          id,
		Name:        r.Name,
		Intro:       r.Intro,
		Ingredients: r.Ingredients,
		Steps:       steps,
	}.Normalized(group)
}

func fromDomain(d domain.Dish) dishRecord {
	return dishRecord{
		DishID:      d.ID,
		Name:        d.Name,
		Intro:       d.Intro,
		Ingredients: d.Ingredients,
		Step:        d.Steps,
	}
}
