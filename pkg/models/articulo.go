package models

import "time"

// Articulo is one article of the regulation. The legal text is seeded
// by the offline importer and never mutated through the API.
type Articulo struct {
	ID         int       `json:"id"`
	Numero     string    `json:"numero"` // legal number, not always numeric ("7 bis")
	Nombre     string    `json:"nombre"`
	TextoLegal string    `json:"textoLegal"`
	Orden      int       `json:"orden"`
	EsVigente  bool      `json:"esVigente"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Anotaciones holds the article's publishable annotations when the
	// query asked for them (public article page).
	Anotaciones []*Anotacion `json:"anotaciones,omitempty"`
}
