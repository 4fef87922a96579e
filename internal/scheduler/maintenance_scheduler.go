package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// jobTimeout bounds a single run so a slow database cannot stack up runs.
const jobTimeout = 10 * time.Minute

// MaintenanceScheduler runs the periodic cart and rating housekeeping.
type MaintenanceScheduler struct {
	cron          *cron.Cron
	cfg           config.SchedulerConfig
	anonymousTTL  time.Duration
	db            *gorm.DB
	cartRepo      repository.CartRepository
	cartService   service.CartService
	ratingService service.RatingService
	now           func() time.Time
}

func NewMaintenanceScheduler(
	cfg config.SchedulerConfig,
	anonymousTTL time.Duration,
	db *gorm.DB,
	cartRepo repository.CartRepository,
	cartService service.CartService,
	ratingService service.RatingService,
) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:          cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:           cfg,
		anonymousTTL:  anonymousTTL,
		db:            db,
		cartRepo:      cartRepo,
		cartService:   cartService,
		ratingService: ratingService,
		now:           time.Now,
	}
}

// Start registers both jobs and starts the cron loop.
func (s *MaintenanceScheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"anonymous cart purge", s.cfg.AnonymousCartPurgeSpec, func(ctx context.Context) error {
			_, err := s.PurgeAnonymousCarts(ctx)
			return err
		}},
		{"cart and rating reconcile", s.cfg.ReconcileSpec, s.Reconcile},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			logger.Info("Starting scheduled job", map[string]interface{}{"job": job.name})
			if err := job.run(ctx); err != nil {
				logger.Error("Scheduled job failed", err, map[string]interface{}{"job": job.name})
				return
			}
			logger.Info("Scheduled job finished", map[string]interface{}{"job": job.name})
		})
		if err != nil {
			logger.Error("Failed to add cron job", err, map[string]interface{}{
				"job":  job.name,
				"spec": job.spec,
			})
			return err
		}
	}

	s.cron.Start()
	logger.Info("Maintenance scheduler started", map[string]interface{}{
		"cart_purge": s.cfg.AnonymousCartPurgeSpec,
		"reconcile":  s.cfg.ReconcileSpec,
	})
	return nil
}

// Stop waits for a running job to finish.
func (s *MaintenanceScheduler) Stop() {
	logger.Info("Stopping maintenance scheduler", nil)
	<-s.cron.Stop().Done()
	logger.Info("Maintenance scheduler stopped", nil)
}

// PurgeAnonymousCarts deletes anonymous carts idle for longer than the TTL.
func (s *MaintenanceScheduler) PurgeAnonymousCarts(ctx context.Context) (int64, error) {
	before := s.now().Add(-s.anonymousTTL)
	deleted, err := s.cartRepo.WithTx(s.db.WithContext(ctx)).DeleteStaleAnonymous(before)
	if err != nil {
		return 0, err
	}
	logger.Info("Purged stale anonymous carts", map[string]interface{}{
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	})
	return deleted, nil
}

// Reconcile recomputes the totals of every open cart and the rating of every
// product, repairing anything written outside the services.
func (s *MaintenanceScheduler) Reconcile(ctx context.Context) error {
	ids, err := s.cartRepo.WithTx(s.db.WithContext(ctx)).ListOpenIDs()
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.cartService.Recalculate(ctx, id); err != nil {
			failed++
			logger.Warn("Failed to recalculate cart", map[string]interface{}{
				"cart_id": id,
				"error":   err.Error(),
			})
		}
	}

	refreshed, err := s.ratingService.RefreshAll(ctx)
	if err != nil {
		return err
	}

	logger.Info("Reconciled carts and ratings", map[string]interface{}{
		"carts":        len(ids),
		"carts_failed": failed,
		"products":     refreshed,
	})
	return nil
}
