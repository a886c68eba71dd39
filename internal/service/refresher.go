package service

import (
	"context"
	"sync"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRefreshQueueSize = 256
	defaultRefreshRetries   = 3
	defaultRefreshTimeout   = 30 * time.Second
)

// ProfileRefresher recomputes one learner's curiosity profile.
type ProfileRefresher interface {
	RefreshProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.CuriosityProfile, error)
}

type refreshTask struct {
	tenantID  uuid.UUID
	learnerID uuid.UUID
}

// RefresherService drains a bounded queue of curiosity-profile refresh tasks
// in a background goroutine. The write path hands off here so cache refreshes
// never block signal recording; failures are retried a bounded number of
// times and then logged, never surfaced.
type RefresherService struct {
	target  ProfileRefresher
	logger  *zap.Logger
	tasks   chan refreshTask
	retries int

	mu       sync.Mutex
	inflight map[refreshTask]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRefresherService(target ProfileRefresher, logger *zap.Logger) *RefresherService {
	return &RefresherService{
		target:   target,
		logger:   logger,
		tasks:    make(chan refreshTask, defaultRefreshQueueSize),
		retries:  defaultRefreshRetries,
		inflight: make(map[refreshTask]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Enqueue schedules a refresh. Best-effort: duplicates of an in-flight task
// are coalesced and a full queue drops the task with a warning. A duplicate
// recompute is wasted work, not a correctness hazard.
func (s *RefresherService) Enqueue(tenantID, learnerID uuid.UUID) {
	task := refreshTask{tenantID: tenantID, learnerID: learnerID}

	s.mu.Lock()
	if _, dup := s.inflight[task]; dup {
		s.mu.Unlock()
		return
	}
	s.inflight[task] = struct{}{}
	s.mu.Unlock()

	select {
	case s.tasks <- task:
	default:
		s.done(task)
		s.logger.Warn("curiosity refresh queue full, dropping task",
			zap.String("learner_id", learnerID.String()),
		)
	}
}

func (s *RefresherService) done(task refreshTask) {
	s.mu.Lock()
	delete(s.inflight, task)
	s.mu.Unlock()
}

// Start runs the refresh worker in a background goroutine.
func (s *RefresherService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("curiosity refresher started")
		for {
			select {
			case task := <-s.tasks:
				s.run(task)
			case <-s.stopCh:
				s.logger.Info("curiosity refresher stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the worker.
func (s *RefresherService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *RefresherService) run(task refreshTask) {
	defer s.done(task)

	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), defaultRefreshTimeout)
		_, err = s.target.RefreshProfile(ctx, task.tenantID, task.learnerID)
		cancel()
		if err == nil {
			return
		}
		s.logger.Warn("curiosity profile refresh failed",
			zap.String("learner_id", task.learnerID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	s.logger.Error("curiosity profile refresh abandoned",
		zap.String("learner_id", task.learnerID.String()),
		zap.Int("attempts", s.retries),
		zap.Error(err),
	)
}
