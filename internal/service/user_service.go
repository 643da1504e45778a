package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/internal/repository"
	"github.com/noah-isme/crm-admin-api/internal/userquery"
	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
	"github.com/noah-isme/crm-admin-api/pkg/export"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

// UserServiceParams groups constructor dependencies.
type UserServiceParams struct {
	Repo     userRepository
	Cache    *CacheService
	Audit    AuditRecorder
	Metrics  *MetricsService
	Logger   *zap.Logger
	CacheTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// UserService is the authority for directory records: id assignment, email
// uniqueness and enum validation.
type UserService struct {
	repo       userRepository
	cache      *CacheService
	audit      AuditRecorder
	metrics    *MetricsService
	logger     *zap.Logger
	cacheTTL   time.Duration
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(p UserServiceParams) *UserService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.BcryptCost == 0 {
		p.BcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:       p.Repo,
		cache:      p.Cache,
		audit:      p.Audit,
		metrics:    p.Metrics,
		logger:     p.Logger,
		cacheTTL:   p.CacheTTL,
		bcryptCost: p.BcryptCost,
	}
}

// List returns every user in creation order and reports whether it was served from cache.
func (s *UserService) List(ctx context.Context) ([]models.User, bool, error) {
	users, hit, err := cachedLoad(ctx, s.cache, cacheKeyUsersList, s.cacheTTL, s.repo.List)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, hit, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// View derives one page of the directory for the given controls.
func (s *UserService) View(ctx context.Context, controls userquery.Controls) (userquery.Result, bool, error) {
	users, hit, err := s.List(ctx)
	if err != nil {
		return userquery.Result{}, false, err
	}
	return userquery.Derive(users, controls), hit, nil
}

// Export renders the filtered and sorted directory, ignoring pagination.
func (s *UserService) Export(ctx context.Context, controls userquery.Controls, format export.Format) (*export.File, error) {
	users, _, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := userquery.Apply(users, controls)

	data := export.Dataset{Headers: []string{"ID", "Name", "Email", "Role", "Status", "Last Login"}}
	for _, u := range rows {
		lastLogin := ""
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.UTC().Format(time.RFC3339)
		}
		data.Rows = append(data.Rows, []string{formatID(u.ID), u.Name, u.Email, string(u.Role), string(u.Status), lastLogin})
	}

	file, err := export.Render(format, "users", "User Directory", data)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export users")
	}
	return file, nil
}

// Create adds a new user. Role defaults to Guest and status to Active.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	req = req.Normalize()
	if err := req.Validate().Err("invalid create user payload"); err != nil {
		return nil, err
	}

	if err := s.ensureEmailAvailable(ctx, req.Email, 0); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(passwordHash),
		Role:     req.Role,
		Status:   req.Status,
		Avatar:   req.Avatar,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, translateWriteError(err, "failed to create user")
	}

	s.afterMutation(ctx, "create", userAuditEntry(models.AuditActionUserCreate, user.ID, nil, user, meta))
	return user, nil
}

// Update merges the supplied fields over the stored record.
func (s *UserService) Update(ctx context.Context, id int64, req UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	req = req.Normalize()
	if err := req.Validate().Err("invalid update user payload"); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *user

	if req.Email != nil && *req.Email != user.Email {
		if err := s.ensureEmailAvailable(ctx, *req.Email, id); err != nil {
			return nil, err
		}
	}

	req.apply(user)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, translateWriteError(err, "failed to update user")
	}

	s.afterMutation(ctx, "update", userAuditEntry(models.AuditActionUserUpdate, id, &before, user, meta))
	return user, nil
}

// Delete removes a user permanently.
func (s *UserService) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateWriteError(err, "failed to delete user")
	}

	s.afterMutation(ctx, "delete", userAuditEntry(models.AuditActionUserDelete, id, user, nil, meta))
	return nil
}

// ensureEmailAvailable fails with a conflict when email belongs to a user other than selfID.
func (s *UserService) ensureEmailAvailable(ctx context.Context, email string, selfID int64) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	case err == nil, errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
}

// afterMutation drops cached listings and records the change. Neither step
// can fail the mutation that already committed.
func (s *UserService) afterMutation(ctx context.Context, op string, entry models.AuditLog) {
	if err := s.cache.Invalidate(ctx, cachePatternUsers, cachePatternStats); err != nil {
		s.logger.Warn("user cache invalidation failed", zap.String("operation", op), zap.Error(err))
	}
	s.metrics.RecordUserMutation(op)
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

func translateWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
