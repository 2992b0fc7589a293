package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/observability"
	"github.com/karsu-its/ijara-api/internal/repository"
	"github.com/karsu-its/ijara-api/pkg/hemis"
)

const syncPageRetries = 2

// ErrSyncAlreadyRunning is returned when a roster sync is requested while
// another run holds the lock.
var ErrSyncAlreadyRunning = errors.New("roster sync already running")

// RosterSource is the slice of the HEMIS client the sync job needs.
type RosterSource interface {
	StudentPage(ctx context.Context, page, limit int) (*hemis.StudentList, error)
	UniversityProfile(ctx context.Context) (*hemis.University, error)
}

// SyncService pulls the student roster out of HEMIS and upserts it into
// the local database. Runs are exclusive across nodes; the lock lives in
// the sync state row.
type SyncService interface {
	// Run performs a full roster sync. Callers trigger it from a request
	// handler and should run it off the request goroutine.
	Run(ctx context.Context) error
	Status(ctx context.Context) (dto.SyncStatusResponse, error)
	Faculties(ctx context.Context) ([]dto.FacultyResponse, error)
}

type syncService struct {
	repo        repository.SyncRepository
	groups      repository.GroupRepository
	source      RosterSource
	pageSize    int
	concurrency int
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSyncService constructs the roster sync service.
func NewSyncService(repo repository.SyncRepository, groups repository.GroupRepository, source RosterSource, pageSize, concurrency int, logger zerolog.Logger) SyncService {
	if pageSize <= 0 {
		pageSize = 200
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	return &syncService{
		repo:        repo,
		groups:      groups,
		source:      source,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "sync_service").Logger(),
		tracer:      otel.Tracer("github.com/karsu-its/ijara-api/internal/service/sync"),
	}
}

func (s *syncService) Status(ctx context.Context) (dto.SyncStatusResponse, error) {
	state, err := s.repo.State(ctx)
	if err != nil {
		return dto.SyncStatusResponse{}, err
	}

	return dto.NewSyncStatusResponse(state), nil
}

func (s *syncService) Faculties(ctx context.Context) ([]dto.FacultyResponse, error) {
	profile, err := s.source.UniversityProfile(ctx)
	if err != nil {
		return nil, err
	}

	faculties := make([]dto.FacultyResponse, 0, len(profile.Faculties))
	for _, faculty := range profile.Faculties {
		faculties = append(faculties, dto.FacultyResponse{Code: faculty.Code, Name: faculty.Name})
	}

	return faculties, nil
}

func (s *syncService) Run(ctx context.Context) error {
	acquired, err := s.repo.TryStart(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrSyncAlreadyRunning
	}

	ctx, span := s.tracer.Start(ctx, "sync.run")
	defer span.End()

	total, pagesFailed, runErr := s.pull(ctx)
	span.SetAttributes(
		attribute.Int("sync.total", total),
		attribute.Int("sync.pages_failed", pagesFailed),
	)

	outcome := "success"
	if runErr != nil {
		outcome = "failed"
		span.RecordError(runErr)
	} else if pagesFailed > 0 {
		outcome = "partial"
	}
	observability.SyncRuns().WithLabelValues(outcome).Inc()

	if err := s.repo.Finish(ctx, total, pagesFailed, runErr); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist sync state")
		return err
	}

	s.logger.Info().
		Int("total", total).
		Int("pages_failed", pagesFailed).
		Str("outcome", outcome).
		Msg("roster sync finished")

	return runErr
}

// pull walks the roster pages. The first page establishes the page count;
// the rest are fetched by a bounded worker pool. Students are deduplicated
// by id number before the upsert so a mid-sync roster shuffle cannot write
// the same row twice in one batch.
func (s *syncService) pull(ctx context.Context) (int, int, error) {
	first, err := s.fetchPage(ctx, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch roster page 1: %w", err)
	}

	byIDNumber := make(map[string]models.Student)
	groupsByCode := make(map[string]models.Group)
	var mu sync.Mutex

	collect := func(accounts []hemis.Account) {
		mu.Lock()
		defer mu.Unlock()
		for _, account := range accounts {
			if account.StudentIDNumber == "" {
				continue
			}
			byIDNumber[account.StudentIDNumber] = studentFromAccount(account)
			if group := groupFromAccount(account); group.Code != "" {
				groupsByCode[group.Code] = group
			}
		}
	}

	collect(first.Items)

	pageCount := first.Pagination.PageCount
	pagesFailed := 0

	if pageCount > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, s.concurrency)
		var failedMu sync.Mutex

		for page := 2; page <= pageCount; page++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(page int) {
				defer wg.Done()
				defer func() { <-sem }()

				list, err := s.fetchPage(ctx, page)
				if err != nil {
					s.logger.Warn().Err(err).Int("page", page).Msg("roster page lost after retries")
					observability.SyncPagesFailed().Inc()
					failedMu.Lock()
					pagesFailed++
					failedMu.Unlock()
					return
				}
				collect(list.Items)
			}(page)
		}
		wg.Wait()
	}

	students := make([]models.Student, 0, len(byIDNumber))
	for _, student := range byIDNumber {
		students = append(students, student)
	}

	if err := s.repo.UpsertStudents(ctx, students); err != nil {
		return 0, pagesFailed, fmt.Errorf("upsert roster: %w", err)
	}

	for _, group := range groupsByCode {
		group := group
		if err := s.groups.Upsert(ctx, &group); err != nil {
			return len(students), pagesFailed, fmt.Errorf("upsert group %s: %w", group.Code, err)
		}
	}

	return len(students), pagesFailed, nil
}

func (s *syncService) fetchPage(ctx context.Context, page int) (*hemis.StudentList, error) {
	var lastErr error
	for attempt := 0; attempt <= syncPageRetries; attempt++ {
		list, err := s.source.StudentPage(ctx, page, s.pageSize)
		if err == nil {
			return list, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
