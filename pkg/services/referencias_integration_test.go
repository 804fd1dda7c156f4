package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

func TestReferenciaService_DuplicateNumeroConflict(t *testing.T) {
	env := newTestEnv(t)

	env.addReferencia(t, "2024-015")

	_, err := env.referencias.Create(env.ctx, ReferenciaInput{
		TipoReferenciaID: 1,
		Numero:           "2024-015",
	})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Same numero under a different tipo is fine.
	if _, err := env.referencias.Create(env.ctx, ReferenciaInput{
		TipoReferenciaID: 2,
		Numero:           "2024-015",
	}); err != nil {
		t.Fatalf("expected create under other tipo to succeed: %v", err)
	}
}

func TestReferenciaService_UpdatePreservesVerifier(t *testing.T) {
	env := newTestEnv(t)

	ref, err := env.referencias.Create(env.ctx, ReferenciaInput{
		TipoReferenciaID: 1,
		Numero:           "2024-020",
		Titulo:           "Voto de prueba",
		EsVerificada:     true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ref.VerificadoPorID == nil || *ref.VerificadoPorID != env.actor.ID {
		t.Fatal("expected verifier stamped on create")
	}
	firstVerification := ref.FechaVerificacion

	// An unrelated edit keeps the original verification stamp.
	updated, err := env.referencias.Update(env.ctx, ref.ID, ReferenciaInput{
		TipoReferenciaID: 1,
		Numero:           "2024-020",
		Titulo:           "Voto de prueba (corregido)",
		EsVerificada:     true,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.VerificadoPorID == nil || *updated.VerificadoPorID != env.actor.ID {
		t.Error("expected verifier preserved across update")
	}
	if updated.FechaVerificacion == nil || !updated.FechaVerificacion.Equal(*firstVerification) {
		t.Error("expected verification date preserved across update")
	}

	// Revoking verification clears the stamp.
	revoked, err := env.referencias.Update(env.ctx, ref.ID, ReferenciaInput{
		TipoReferenciaID: 1,
		Numero:           "2024-020",
		Titulo:           "Voto de prueba (corregido)",
		EsVerificada:     false,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if revoked.VerificadoPorID != nil || revoked.FechaVerificacion != nil {
		t.Error("expected verification stamp cleared after revoke")
	}
}

func TestReferenciaService_DeleteRemovesAnnotationLinks(t *testing.T) {
	env := newTestEnv(t)

	ref := env.addReferencia(t, "2024-030")
	anotacion, err := env.anotaciones.Create(env.ctx, CreateAnotacionInput{
		ArticuloID:      env.articulo.ID,
		TipoAnotacionID: env.tipoContexto.ID,
		Contenido:       "<p>Cita.</p>",
		Orden:           1,
		ReferenciaIDs:   []uuid.UUID{ref.ID},
	})
	if err != nil {
		t.Fatalf("Create anotacion failed: %v", err)
	}

	if err := env.referencias.Delete(env.ctx, ref.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The annotation survives, its link to the reference does not.
	reloaded, err := env.anotaciones.GetByID(env.ctx, anotacion.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(reloaded.Referencias) != 0 {
		t.Errorf("expected no links after reference delete, got %d", len(reloaded.Referencias))
	}
}

func TestReferenciaService_LinkArticlesContexto(t *testing.T) {
	env := newTestEnv(t)

	env.addArticulo(t, "2", 2)
	ref := env.addReferencia(t, "2024-101")

	created, err := env.referencias.LinkArticlesContexto(env.ctx, ref.ID, []string{"1", "2", "999"})
	if err != nil {
		t.Fatalf("LinkArticlesContexto failed: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}

	articulo, err := env.articulos.GetByNumero(env.ctx, "1")
	if err != nil {
		t.Fatalf("GetByNumero failed: %v", err)
	}
	if len(articulo.Anotaciones) != 1 {
		t.Fatalf("expected 1 publishable annotation, got %d", len(articulo.Anotaciones))
	}

	anotacion := articulo.Anotaciones[0]
	if anotacion.TipoAnotacionID != env.tipoContexto.ID {
		t.Errorf("expected contexto tipo %d, got %d", env.tipoContexto.ID, anotacion.TipoAnotacionID)
	}
	if got := anotacion.ReviewStatus(); got != models.StatusAuthored {
		t.Errorf("expected authored status for human-initiated link, got %q", got)
	}
	if !strings.Contains(anotacion.Contenido, "2024-101") {
		t.Errorf("expected contenido to cite the reference numero: %q", anotacion.Contenido)
	}
	if len(anotacion.Referencias) != 1 || anotacion.Referencias[0].ReferenciaID != ref.ID {
		t.Errorf("expected a single link to the reference: %+v", anotacion.Referencias)
	}

	// A repeat run links nothing new.
	created, err = env.referencias.LinkArticlesContexto(env.ctx, ref.ID, []string{"1", "2"})
	if err != nil {
		t.Fatalf("second LinkArticlesContexto failed: %v", err)
	}
	if created != 0 {
		t.Errorf("expected 0 on repeat, got %d", created)
	}
}

func TestReferenciaService_LinkAppendsAfterExistingOrden(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.anotaciones.Create(env.ctx, CreateAnotacionInput{
		ArticuloID:      env.articulo.ID,
		TipoAnotacionID: env.tipoContexto.ID,
		Contenido:       "<p>Primera nota.</p>",
		Orden:           5,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ref := env.addReferencia(t, "2024-102")
	if _, err := env.referencias.LinkArticlesContexto(env.ctx, ref.ID, []string{"1"}); err != nil {
		t.Fatalf("LinkArticlesContexto failed: %v", err)
	}

	anotaciones, err := env.anotaciones.List(env.ctx, repositories.AnotacionFilter{ArticuloID: env.articulo.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(anotaciones) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(anotaciones))
	}

	last := anotaciones[len(anotaciones)-1]
	if last.Orden != 6 {
		t.Errorf("expected new annotation at orden 6, got %d", last.Orden)
	}
}
