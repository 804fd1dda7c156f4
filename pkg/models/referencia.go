package models

import (
	"time"

	"github.com/google/uuid"
)

// Referencia is an external citation: a constitutional-court ruling, a
// plenary session record, a law. (numero, tipo_referencia_id) is unique.
type Referencia struct {
	ID                uuid.UUID  `json:"id"`
	TipoReferenciaID  int        `json:"tipoReferenciaId"`
	Numero            string     `json:"numero"`
	Titulo            *string    `json:"titulo,omitempty"`
	URLPrincipal      *string    `json:"urlPrincipal,omitempty"`
	URLNexus          *string    `json:"urlNexus,omitempty"`
	URLCatalogo       *string    `json:"urlCatalogo,omitempty"`
	URLRepositorio    *string    `json:"urlRepositorio,omitempty"`
	EsVerificada      bool       `json:"esVerificada"`
	VerificadoPorID   *uuid.UUID `json:"verificadoPorId,omitempty"`
	FechaVerificacion *time.Time `json:"fechaVerificacion,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	TipoReferencia *TipoReferencia `json:"tipoReferencia,omitempty"`
}
