package models

import (
	"time"

	"github.com/google/uuid"
)

// Anotacion is the mutable editorial unit: one note attached to one
// article, categorized by one TipoAnotacion.
type Anotacion struct {
	ID              uuid.UUID  `json:"id"`
	ArticuloID      int        `json:"articuloId"`
	TipoAnotacionID int        `json:"tipoAnotacionId"`
	Contenido       string     `json:"contenido"` // rich-text HTML
	Orden           int        `json:"orden"`
	EsVisible       bool       `json:"esVisible"`
	EsAprobada      bool       `json:"esAprobada"`
	FuenteIA        bool       `json:"fuenteIA"`
	CreatedByID     uuid.UUID  `json:"createdById"`
	UpdatedByID     *uuid.UUID `json:"updatedById,omitempty"`
	AprobadoPorID   *uuid.UUID `json:"aprobadoPorId,omitempty"`
	FechaAprobacion *time.Time `json:"fechaAprobacion,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	TipoAnotacion *TipoAnotacion         `json:"tipoAnotacion,omitempty"`
	Referencias   []*AnotacionReferencia `json:"referencias,omitempty"`
}

// AnotacionReferencia links an annotation to a cited reference with a
// display position. The whole link set is replaced on annotation
// update, never diffed.
type AnotacionReferencia struct {
	AnotacionID  uuid.UUID `json:"anotacionId"`
	ReferenciaID uuid.UUID `json:"referenciaId"`
	Orden        int       `json:"orden"` // 1-based position in the citing annotation

	Referencia *Referencia `json:"referencia,omitempty"`
}

// ReviewStatus names the editorial state of an annotation. The three
// boolean columns (fuente_ia, es_aprobada, es_visible) are a projection
// of this status; ReviewStatus() is the one place the flags are
// interpreted.
type ReviewStatus string

const (
	// StatusAuthored: written by a person, implicitly approved.
	StatusAuthored ReviewStatus = "authored"
	// StatusPending: AI-sourced, awaiting editorial approval.
	StatusPending ReviewStatus = "pending"
	// StatusApproved: AI-sourced and approved by an editor. Terminal.
	StatusApproved ReviewStatus = "approved"
	// StatusRejected: AI-sourced, hidden without approval. Terminal.
	StatusRejected ReviewStatus = "rejected"
)

// ReviewStatus derives the named state from the stored flags.
func (a *Anotacion) ReviewStatus() ReviewStatus {
	switch {
	case !a.FuenteIA:
		return StatusAuthored
	case a.EsAprobada:
		return StatusApproved
	case a.EsVisible:
		return StatusPending
	default:
		return StatusRejected
	}
}

// IsPublishable reports whether the annotation appears in public
// queries: visible, and either human-authored or approved.
func (a *Anotacion) IsPublishable() bool {
	status := a.ReviewStatus()
	return a.EsVisible && (status == StatusAuthored || status == StatusApproved)
}
