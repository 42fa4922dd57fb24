package model

// Recipe is a stored recipe record. It has no owner link to a User.
//
// Ingredients keeps the order the client sent. A recipe is stored exactly as
// received; nothing here is validated.
type Recipe struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
}

func (r *Recipe) GetID() string   { return r.ID }
func (r *Recipe) SetID(id string) { r.ID = id }
