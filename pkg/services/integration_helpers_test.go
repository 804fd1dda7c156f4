package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/config"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
	"github.com/delfino-cr/reglamento-engine/pkg/testhelpers"
)

// testEnv wires the real services against the shared test database.
type testEnv struct {
	tdb          *testhelpers.TestDB
	ctx          context.Context
	actor        *models.User
	articulo     *models.Articulo
	tipoContexto *models.TipoAnotacion

	anotaciones AnotacionService
	referencias ReferenciaService
	users       UserService
	articulos   ArticuloService
	audit       AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)

	logger := zap.NewNop()
	articuloRepo := repositories.NewArticuloRepository()
	anotacionRepo := repositories.NewAnotacionRepository()
	referenciaRepo := repositories.NewReferenciaRepository()
	tipoRepo := repositories.NewTipoRepository()
	userRepo := repositories.NewUserRepository()
	auditRepo := repositories.NewAuditRepository()

	authCfg := &config.AuthConfig{
		SessionKey:         "test-session-key",
		SessionTTLHours:    1,
		AllowedEmailDomain: "delfino.cr",
		MasterEmail:        "master@gmail.com",
	}

	actor := &models.User{
		Email:        "editor@delfino.cr",
		FullName:     "Editor de Prueba",
		PasswordHash: "x",
		Role:         models.RoleEditor,
		IsActive:     true,
	}
	if err := userRepo.Insert(context.Background(), tdb.DB.Pool, actor); err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}

	articulo := &models.Articulo{
		Numero:     "1",
		Nombre:     "Sesiones",
		TextoLegal: "<p>Texto del artículo.</p>",
		Orden:      1,
		EsVigente:  true,
	}
	if err := articuloRepo.Upsert(context.Background(), tdb.DB.Pool, articulo); err != nil {
		t.Fatalf("failed to insert test articulo: %v", err)
	}

	tipoContexto, err := tipoRepo.GetTipoAnotacionByNombre(context.Background(), tdb.DB.Pool, models.TipoContextoNombre)
	if err != nil {
		t.Fatalf("failed to load contexto tipo: %v", err)
	}

	return &testEnv{
		tdb:          tdb,
		ctx:          authedContext(actor.ID),
		actor:        actor,
		articulo:     articulo,
		tipoContexto: tipoContexto,
		anotaciones:  NewAnotacionService(tdb.DB, anotacionRepo, articuloRepo, tipoRepo, referenciaRepo, auditRepo, logger),
		referencias:  NewReferenciaService(tdb.DB, referenciaRepo, tipoRepo, articuloRepo, anotacionRepo, auditRepo, logger),
		users:        NewUserService(tdb.DB, userRepo, auditRepo, authCfg, logger),
		articulos:    NewArticuloService(tdb.DB, articuloRepo, anotacionRepo, tipoRepo),
		audit:        NewAuditService(tdb.DB, auditRepo),
	}
}

// authedContext simulates the middleware's claim injection.
func authedContext(userID uuid.UUID) context.Context {
	claims := &auth.Claims{}
	claims.Subject = userID.String()
	return context.WithValue(context.Background(), auth.ClaimsKey, claims)
}

// addArticulo seeds an extra article.
func (e *testEnv) addArticulo(t *testing.T, numero string, orden int) *models.Articulo {
	t.Helper()
	articulo := &models.Articulo{
		Numero:     numero,
		Nombre:     "Artículo " + numero,
		TextoLegal: "<p>Texto.</p>",
		Orden:      orden,
		EsVigente:  true,
	}
	repo := repositories.NewArticuloRepository()
	if err := repo.Upsert(context.Background(), e.tdb.DB.Pool, articulo); err != nil {
		t.Fatalf("failed to insert articulo %q: %v", numero, err)
	}
	return articulo
}

// addReferencia seeds a reference through the service.
func (e *testEnv) addReferencia(t *testing.T, numero string) *models.Referencia {
	t.Helper()
	ref, err := e.referencias.Create(e.ctx, ReferenciaInput{
		TipoReferenciaID: 1,
		Numero:           numero,
		Titulo:           "Referencia " + numero,
	})
	if err != nil {
		t.Fatalf("failed to create referencia %q: %v", numero, err)
	}
	return ref
}

// countAudit counts audit entries for the given action type.
func (e *testEnv) countAudit(t *testing.T, action string) int {
	t.Helper()
	var count int
	err := e.tdb.DB.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM audit_log WHERE action_type = $1`, action,
	).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count audit entries: %v", err)
	}
	return count
}
