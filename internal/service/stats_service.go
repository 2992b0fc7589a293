package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/repository"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// Boiler and sub-district buckets keep a fixed order so the dashboard
// charts line up between refreshes regardless of which counts are zero.
var boilerBucketTitles = []string{
	"Ariston kotyol",
	"Qo'l bo'la kotyol",
	"Qo'l bo'la pech",
	"Elektropech",
	"Konditsioner",
	"Isitish uskunasi yo'q",
}

var subDistrictTitles = []string{
	"20 - kichik tuman",
	"21 - kichik tuman",
	"22 - kichik tuman",
	"23 - kichik tuman",
	"24 - kichik tuman",
	"25 - kichik tuman",
	"26 - kichik tuman",
	"27 - kichik tuman",
	"28 - kichik tuman",
}

// StatsService aggregates compliance dashboards for faculty admins and
// university administration. All submission figures cover open rounds only.
type StatsService interface {
	FacultyFill(ctx context.Context) ([]dto.FacultyFillRow, error)
	GroupFill(ctx context.Context, facultyName string) ([]dto.GroupFillRow, error)
	StatusBreakdown(ctx context.Context, groupCodes []string) (dto.StatusBreakdown, error)
	BoilerBuckets(ctx context.Context) ([]dto.BucketRow, error)
	SubDistrictBuckets(ctx context.Context) ([]dto.BucketRow, error)
	GenderCounts(ctx context.Context) (dto.GenderCounts, error)
	MapPoints(ctx context.Context) ([]dto.MapPoint, error)
	Dashboard(ctx context.Context) (dto.DashboardSummary, error)
}

type statsService struct {
	repo     repository.StatsRepository
	groups   repository.GroupRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewStatsService constructs the stats service. The cache client may be
// nil, in which case every dashboard request aggregates fresh.
func NewStatsService(repo repository.StatsRepository, groups repository.GroupRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	return &statsService{
		repo:     repo,
		groups:   groups,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "stats_service").Logger(),
		tracer:   otel.Tracer("github.com/karsu-its/ijara-api/internal/service/stats"),
	}
}

func (s *statsService) FacultyFill(ctx context.Context) ([]dto.FacultyFillRow, error) {
	students, err := s.repo.CountStudentsByFaculty(ctx)
	if err != nil {
		return nil, err
	}

	submitted, err := s.repo.CountSubmittedByFaculty(ctx)
	if err != nil {
		return nil, err
	}

	submittedByFaculty := countIndex(submitted)
	rows := make([]dto.FacultyFillRow, 0, len(students))
	for _, row := range students {
		done := submittedByFaculty[row.Key]
		rows = append(rows, dto.FacultyFillRow{
			FacultyName: row.Key,
			Students:    row.Count,
			Submitted:   done,
			Percent:     utils.FormatPercent(done, row.Count),
		})
	}

	return rows, nil
}

func (s *statsService) GroupFill(ctx context.Context, facultyName string) ([]dto.GroupFillRow, error) {
	students, err := s.repo.CountStudentsByGroup(ctx, facultyName)
	if err != nil {
		return nil, err
	}

	submitted, err := s.repo.CountSubmittedByGroup(ctx, facultyName)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(students))
	for _, row := range students {
		codes = append(codes, row.Key)
	}
	groups, err := s.groups.ListByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(groups))
	for _, group := range groups {
		names[group.Code] = group.Name
	}

	submittedByGroup := countIndex(submitted)
	rows := make([]dto.GroupFillRow, 0, len(students))
	for _, row := range students {
		done := submittedByGroup[row.Key]
		rows = append(rows, dto.GroupFillRow{
			GroupCode: row.Key,
			GroupName: names[row.Key],
			Students:  row.Count,
			Submitted: done,
			Percent:   utils.FormatPercent(done, row.Count),
		})
	}

	return rows, nil
}

func (s *statsService) StatusBreakdown(ctx context.Context, groupCodes []string) (dto.StatusBreakdown, error) {
	rows, err := s.repo.CountByStatus(ctx, groupCodes)
	if err != nil {
		return dto.StatusBreakdown{}, err
	}

	return statusBreakdownFromRows(rows), nil
}

func (s *statsService) BoilerBuckets(ctx context.Context) ([]dto.BucketRow, error) {
	rows, err := s.repo.CountByBoilerTitle(ctx)
	if err != nil {
		return nil, err
	}

	return fixedBuckets(boilerBucketTitles, rows), nil
}

func (s *statsService) SubDistrictBuckets(ctx context.Context) ([]dto.BucketRow, error) {
	rows, err := s.repo.CountBySubDistrict(ctx)
	if err != nil {
		return nil, err
	}

	return fixedBuckets(subDistrictTitles, rows), nil
}

func (s *statsService) GenderCounts(ctx context.Context) (dto.GenderCounts, error) {
	rows, err := s.repo.CountSubmittedByGender(ctx)
	if err != nil {
		return dto.GenderCounts{}, err
	}

	return genderCountsFromRows(rows), nil
}

func (s *statsService) MapPoints(ctx context.Context) ([]dto.MapPoint, error) {
	apartments, err := s.repo.ListMapPoints(ctx)
	if err != nil {
		return nil, err
	}

	points := make([]dto.MapPoint, 0, len(apartments))
	for _, apartment := range apartments {
		point := dto.MapPoint{
			ApartmentID: apartment.ID,
			Status:      string(apartment.Status),
			Latitude:    apartment.Latitude,
			Longitude:   apartment.Longitude,
		}
		if apartment.Student != nil {
			point.StudentName = apartment.Student.FullName
			point.GroupName = apartment.Student.GroupName
		}
		points = append(points, point)
	}

	return points, nil
}

func (s *statsService) Dashboard(ctx context.Context) (dto.DashboardSummary, error) {
	const cacheKey = "stats:dashboard:v1"
	ctx, span := s.tracer.Start(ctx, "stats.dashboard")
	span.SetAttributes(attribute.String("stats.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var summary dto.DashboardSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summary); unmarshalErr == nil {
				span.SetAttributes(attribute.Bool("stats.cache_hit", true))
				return summary, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
			span.RecordError(err)
		}
	}

	summary, err := s.buildDashboard(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.DashboardSummary{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *statsService) buildDashboard(ctx context.Context) (dto.DashboardSummary, error) {
	students, err := s.repo.CountStudents(ctx)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	submitted, err := s.repo.CountSubmitted(ctx)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	statusRows, err := s.repo.CountByStatus(ctx, nil)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	genderRows, err := s.repo.CountSubmittedByGender(ctx)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	faculties, err := s.FacultyFill(ctx)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	boilers, err := s.BoilerBuckets(ctx)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	subDistricts, err := s.SubDistrictBuckets(ctx)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	return dto.DashboardSummary{
		Students:     students,
		Submitted:    submitted,
		Percent:      utils.FormatPercent(submitted, students),
		Status:       statusBreakdownFromRows(statusRows),
		Gender:       genderCountsFromRows(genderRows),
		Faculties:    faculties,
		Boilers:      boilers,
		SubDistricts: subDistricts,
	}, nil
}

func countIndex(rows []repository.CountRow) map[string]int64 {
	index := make(map[string]int64, len(rows))
	for _, row := range rows {
		index[row.Key] = row.Count
	}

	return index
}

func statusBreakdownFromRows(rows []repository.CountRow) dto.StatusBreakdown {
	var breakdown dto.StatusBreakdown
	for _, row := range rows {
		switch models.ComplianceStatus(row.Key) {
		case models.ComplianceBeingChecked:
			breakdown.BeingChecked = row.Count
		case models.ComplianceGreen:
			breakdown.Green = row.Count
		case models.ComplianceYellow:
			breakdown.Yellow = row.Count
		case models.ComplianceRed:
			breakdown.Red = row.Count
		}
		breakdown.Total += row.Count
	}

	return breakdown
}

func genderCountsFromRows(rows []repository.CountRow) dto.GenderCounts {
	var counts dto.GenderCounts
	for _, row := range rows {
		switch row.Key {
		case "Erkak", "male":
			counts.Male += row.Count
		case "Ayol", "female":
			counts.Female += row.Count
		}
	}

	return counts
}

// fixedBuckets lays the counted rows onto the canonical bucket order and
// folds unknown titles into none so stray upstream values cannot add bars.
func fixedBuckets(titles []string, rows []repository.CountRow) []dto.BucketRow {
	index := make(map[string]int64, len(rows))
	for _, row := range rows {
		index[row.Key] = row.Count
	}

	buckets := make([]dto.BucketRow, 0, len(titles))
	for _, title := range titles {
		buckets = append(buckets, dto.BucketRow{Title: title, Count: index[title]})
	}

	return buckets
}
