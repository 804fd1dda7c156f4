package models

// TipoAnotacion is an annotation category (reference data).
type TipoAnotacion struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	ColorHex string `json:"colorHex"`
	Icono    string `json:"icono"`
}

// TipoContextoNombre is the category used by the context-linking bulk
// generator. It must exist in the seeded reference data.
const TipoContextoNombre = "Contexto"

// TipoReferencia is an external-source category (reference data).
type TipoReferencia struct {
	ID          int    `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}
