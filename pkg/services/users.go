package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/auth"
	"github.com/delfino-cr/reglamento-engine/pkg/config"
	"github.com/delfino-cr/reglamento-engine/pkg/database"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
	"github.com/delfino-cr/reglamento-engine/pkg/repositories"
)

// bcryptCost matches the hashes the seeder and prior tooling produce.
const bcryptCost = 12

// CreateUserInput carries the fields for a new editorial account.
type CreateUserInput struct {
	Email    string
	FullName string
	Password string
	Role     string
}

// UpdateUserInput is a partial user update. Nil fields stay untouched.
type UpdateUserInput struct {
	FullName *string
	Role     *string
	IsActive *bool
}

// UserService manages editorial accounts. The configured master account
// is excluded from every mutation.
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*models.User, error)
	// ToggleActive flips is_active and returns the updated row.
	ToggleActive(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type userService struct {
	db     *database.DB
	users  repositories.UserRepository
	audit  repositories.AuditRepository
	cfg    *config.AuthConfig
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	db *database.DB,
	users repositories.UserRepository,
	audit repositories.AuditRepository,
	cfg *config.AuthConfig,
	logger *zap.Logger,
) UserService {
	return &userService{
		db:     db,
		users:  users,
		audit:  audit,
		cfg:    cfg,
		logger: logger,
	}
}

var _ UserService = (*userService)(nil)

func (s *userService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	verr := &apperrors.ValidationError{}
	if email == "" {
		verr.Add("email", "must not be empty")
	} else if !s.emailAllowed(email) {
		verr.Add("email", "email domain not allowed")
	}
	if strings.TrimSpace(input.FullName) == "" {
		verr.Add("fullName", "must not be empty")
	}
	if len(input.Password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if !models.IsValidRole(input.Role) {
		verr.Add("role", "must be ADMIN or EDITOR")
	}
	if verr.HasIssues() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		FullName:     input.FullName,
		PasswordHash: string(hash),
		Role:         input.Role,
		IsActive:     true,
	}

	if err := s.users.Insert(ctx, s.db.Pool, user); err != nil {
		return nil, err
	}

	s.logger.Info("Created user",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role))

	return user, nil
}

func (s *userService) emailAllowed(email string) bool {
	if s.cfg.MasterEmail != "" && email == strings.ToLower(s.cfg.MasterEmail) {
		return true
	}
	return strings.HasSuffix(email, "@"+s.cfg.AllowedEmailDomain)
}

// isMaster reports whether the account is the protected master user.
func (s *userService) isMaster(user *models.User) bool {
	return s.cfg.MasterEmail != "" &&
		strings.EqualFold(user.Email, s.cfg.MasterEmail)
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*models.User, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	if s.isMaster(existing) {
		return nil, apperrors.ErrMasterUserProtected
	}

	previous := map[string]any{}
	var changed []string

	if input.FullName != nil && *input.FullName != existing.FullName {
		if strings.TrimSpace(*input.FullName) == "" {
			return nil, apperrors.NewValidation("fullName", "must not be empty")
		}
		previous["fullName"] = existing.FullName
		existing.FullName = *input.FullName
		changed = append(changed, "fullName")
	}

	if input.Role != nil && *input.Role != existing.Role {
		if !models.IsValidRole(*input.Role) {
			return nil, apperrors.NewValidation("role", "must be ADMIN or EDITOR")
		}
		previous["role"] = existing.Role
		existing.Role = *input.Role
		changed = append(changed, "role")
	}

	if input.IsActive != nil && *input.IsActive != existing.IsActive {
		previous["isActive"] = existing.IsActive
		existing.IsActive = *input.IsActive
		changed = append(changed, "isActive")
	}

	if len(changed) == 0 {
		return existing, nil
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.users.Update(ctx, tx, existing); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionUpdate, models.AuditEntityUsers, id.String())
		entry.PreviousValues = previous
		entry.NewValues = map[string]any{
			"fullName": existing.FullName,
			"role":     existing.Role,
			"isActive": existing.IsActive,
		}
		entry.ChangedFields = changed
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return existing, nil
}

func (s *userService) ToggleActive(ctx context.Context, id uuid.UUID) (*models.User, error) {
	actorID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByID(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}

	if s.isMaster(existing) {
		return nil, apperrors.ErrMasterUserProtected
	}

	previous := map[string]any{"isActive": existing.IsActive}
	existing.IsActive = !existing.IsActive

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.users.Update(ctx, tx, existing); err != nil {
			return err
		}

		entry := newAuditEntry(ctx, actorID, models.AuditActionUpdate, models.AuditEntityUsers, id.String())
		entry.PreviousValues = previous
		entry.NewValues = map[string]any{"isActive": existing.IsActive}
		entry.ChangedFields = []string{"isActive"}
		return s.audit.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Toggled user active flag",
		zap.String("user_id", id.String()),
		zap.Bool("is_active", existing.IsActive))

	return existing, nil
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx, s.db.Pool)
}
