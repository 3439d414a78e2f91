package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emeraldmc/appeals-api/internal/dto"
	"github.com/emeraldmc/appeals-api/internal/models"
	"github.com/emeraldmc/appeals-api/internal/repository"
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
)

const (
	statsCacheKey    = "appeals:stats"
	listCacheKey     = "appeals:list:all"
	cacheKeyPattern  = "appeals:*"
	defaultRecentDay = 7
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type appealStore interface {
	Create(ctx context.Context, appeal *models.Appeal) error
	GetByID(ctx context.Context, id string) (*models.Appeal, error)
	List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error)
	UpdateStatus(ctx context.Context, params repository.UpdateAppealStatusParams) error
	MarkWebhookSent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.AppealStats, error)
}

type appealNotifier interface {
	Notify(ctx context.Context, appeal *models.Appeal)
}

// AppealService owns the appeal lifecycle: player submission with
// validation and best-effort notification, plus the admin review surface.
type AppealService struct {
	repo       appealStore
	notifier   appealNotifier
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	recentDays int
	listTTL    time.Duration
}

// NewAppealService builds an AppealService with sane defaults.
func NewAppealService(
	repo appealStore,
	notifier appealNotifier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	recentDays int,
	listTTL time.Duration,
) *AppealService {
	if validate == nil {
		validate = validator.New()
	}
	registerAppealValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	if recentDays <= 0 {
		recentDays = defaultRecentDay
	}
	return &AppealService{
		repo:       repo,
		notifier:   notifier,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		recentDays: recentDays,
		listTTL:    listTTL,
	}
}

func registerAppealValidations(v *validator.Validate) {
	_ = v.RegisterValidation("mc_username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("ban_reason", func(fl validator.FieldLevel) bool {
		value := models.BanReason(fl.Field().String())
		for _, reason := range models.BanReasons {
			if value == reason {
				return true
			}
		}
		return false
	})
}

// Submit validates a player submission and persists it. The webhook
// notification is dispatched on a detached context so its outcome never
// reaches the submitter; the record may legitimately keep
// webhook_sent=false forever.
func (s *AppealService) Submit(ctx context.Context, req dto.SubmitAppealRequest, clientIP, userAgent string) (*models.Appeal, error) {
	if fields := s.validateSubmission(req); len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	appeal := &models.Appeal{
		Username:     req.Username,
		DiscordTag:   req.DiscordID,
		Email:        req.Email,
		BanReason:    models.BanReason(req.BanReason),
		AppealReason: req.AppealReason,
		UserAgent:    userAgent,
	}
	if req.MinecraftUUID != "" {
		appeal.MinecraftUUID = &req.MinecraftUUID
	}
	if req.AdditionalInfo != "" {
		appeal.AdditionalInfo = &req.AdditionalInfo
	}
	if clientIP != "" {
		appeal.IPAddress = &clientIP
	}

	if err := s.repo.Create(ctx, appeal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to save appeal")
	}
	s.metrics.RecordAppealCreated()
	s.invalidateCache()

	s.logger.Info("appeal submitted",
		zap.String("appeal_id", appeal.ID),
		zap.String("username", appeal.Username),
		zap.String("ban_reason", string(appeal.BanReason)))

	if s.notifier != nil {
		// Detached from the request context: the submission response must
		// not wait on, or fail with, the webhook.
		go s.notifier.Notify(context.Background(), appeal)
	}

	return appeal, nil
}

func (s *AppealService) validateSubmission(req dto.SubmitAppealRequest) map[string]string {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return map[string]string{"_": "invalid submission"}
	}

	fields := make(map[string]string, len(violations))
	for _, violation := range violations {
		name, message := submissionFieldError(violation)
		if _, seen := fields[name]; !seen {
			fields[name] = message
		}
	}
	return fields
}

// submissionFieldError maps a violation to the form field name and the
// message the original appeal form showed for the same rule.
func submissionFieldError(fe validator.FieldError) (string, string) {
	switch fe.StructField() {
	case "Username":
		switch fe.Tag() {
		case "min":
			return "username", "Username must be at least 3 characters"
		case "max":
			return "username", "Username must be less than 16 characters"
		case "mc_username":
			return "username", "Username can only contain letters, numbers, and underscores"
		}
		return "username", "Username is required"
	case "DiscordID":
		if fe.Tag() == "max" {
			return "discordId", "Discord tag is too long"
		}
		return "discordId", "Discord tag is required"
	case "Email":
		return "email", "Please enter a valid email address"
	case "MinecraftUUID":
		return "minecraftUuid", "Minecraft UUID is not valid"
	case "BanReason":
		return "banReason", "Please select a ban reason"
	case "AppealReason":
		if fe.Tag() == "max" {
			return "appealReason", "Appeal reason must be less than 2000 characters"
		}
		return "appealReason", "Please provide at least 50 characters explaining your appeal"
	case "AdditionalInfo":
		return "additionalInfo", "Additional info must be less than 2000 characters"
	}
	return fe.StructField(), "invalid value"
}

// Get fetches one appeal by id.
func (s *AppealService) Get(ctx context.Context, id string) (*models.Appeal, error) {
	appeal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to fetch appeal")
	}
	if appeal == nil {
		return nil, appErrors.ErrNotFound
	}
	return appeal, nil
}

// List returns appeals newest-first, optionally filtered by username,
// email, status or recency window. The unfiltered listing is cached.
func (s *AppealService) List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error) {
	cacheable := filter == models.AppealFilter{}
	if cacheable {
		var cached []models.Appeal
		if hit, _ := s.cache.Get(ctx, listCacheKey, &cached); hit {
			return cached, nil
		}
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Validation(map[string]string{"status": "unknown appeal status"})
	}

	start := time.Now()
	appeals, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("list_appeals", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list appeals")
	}

	if cacheable {
		// Listings churn faster than stats, so they carry their own TTL
		// instead of the cache-wide default.
		_ = s.cache.Set(ctx, listCacheKey, appeals, s.listTTL)
	}
	return appeals, nil
}

// Recent returns appeals created within the last N days (default window
// when days <= 0).
func (s *AppealService) Recent(ctx context.Context, days int) ([]models.Appeal, error) {
	if days <= 0 {
		days = s.recentDays
	}
	return s.List(ctx, models.AppealFilter{Days: days})
}

// UpdateStatus applies an admin review decision and returns the updated
// record. Omitted response/handledBy fields are left untouched.
func (s *AppealService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Appeal, error) {
	if !req.Status.Valid() {
		return nil, appErrors.Validation(map[string]string{"status": "unknown appeal status"})
	}

	err := s.repo.UpdateStatus(ctx, repository.UpdateAppealStatusParams{
		ID:        id,
		Status:    req.Status,
		Response:  req.Response,
		HandledBy: req.HandledBy,
		HandledAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update appeal")
	}
	s.invalidateCache()

	s.logger.Info("appeal reviewed",
		zap.String("appeal_id", id),
		zap.String("status", string(req.Status)))

	return s.Get(ctx, id)
}

// MarkWebhookSent flips the webhook flag from the admin surface. Idempotent.
func (s *AppealService) MarkWebhookSent(ctx context.Context, id string) error {
	if err := s.repo.MarkWebhookSent(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark webhook sent")
	}
	s.invalidateCache()
	return nil
}

// Delete hard-removes an appeal.
func (s *AppealService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete appeal")
	}
	s.invalidateCache()
	s.logger.Info("appeal deleted", zap.String("appeal_id", id))
	return nil
}

// Stats returns aggregate counts by status, cached for a short window.
func (s *AppealService) Stats(ctx context.Context) (*models.AppealStats, error) {
	var cached models.AppealStats
	if hit, _ := s.cache.Get(ctx, statsCacheKey, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	stats, err := s.repo.Stats(ctx)
	s.metrics.ObserveDBQuery("appeal_stats", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to compute stats")
	}

	_ = s.cache.Set(ctx, statsCacheKey, stats, 0)
	return stats, nil
}

func (s *AppealService) invalidateCache() {
	if !s.cache.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.cache.Invalidate(ctx, cacheKeyPattern)
}
