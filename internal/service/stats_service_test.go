package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/repository"
)

type fakeStatsRepo struct {
	students           int64
	submitted          int64
	studentsByFaculty  []repository.CountRow
	submittedByFaculty []repository.CountRow
	studentsByGroup    []repository.CountRow
	submittedByGroup   []repository.CountRow
	byStatus           []repository.CountRow
	byBoiler           []repository.CountRow
	bySubDistrict      []repository.CountRow
	byGender           []repository.CountRow
	mapPoints          []models.Apartment
}

func (r *fakeStatsRepo) CountStudents(ctx context.Context) (int64, error) { return r.students, nil }
func (r *fakeStatsRepo) CountStudentsByFaculty(ctx context.Context) ([]repository.CountRow, error) {
	return r.studentsByFaculty, nil
}
func (r *fakeStatsRepo) CountStudentsByGroup(ctx context.Context, facultyName string) ([]repository.CountRow, error) {
	return r.studentsByGroup, nil
}
func (r *fakeStatsRepo) CountSubmitted(ctx context.Context) (int64, error) { return r.submitted, nil }
func (r *fakeStatsRepo) CountSubmittedByFaculty(ctx context.Context) ([]repository.CountRow, error) {
	return r.submittedByFaculty, nil
}
func (r *fakeStatsRepo) CountSubmittedByGroup(ctx context.Context, facultyName string) ([]repository.CountRow, error) {
	return r.submittedByGroup, nil
}
func (r *fakeStatsRepo) CountByStatus(ctx context.Context, groupCodes []string) ([]repository.CountRow, error) {
	return r.byStatus, nil
}
func (r *fakeStatsRepo) CountByBoilerTitle(ctx context.Context) ([]repository.CountRow, error) {
	return r.byBoiler, nil
}
func (r *fakeStatsRepo) CountBySubDistrict(ctx context.Context) ([]repository.CountRow, error) {
	return r.bySubDistrict, nil
}
func (r *fakeStatsRepo) CountSubmittedByGender(ctx context.Context) ([]repository.CountRow, error) {
	return r.byGender, nil
}
func (r *fakeStatsRepo) ListMapPoints(ctx context.Context) ([]models.Apartment, error) {
	return r.mapPoints, nil
}

func TestFacultyFillFormatsPercents(t *testing.T) {
	repo := &fakeStatsRepo{
		studentsByFaculty: []repository.CountRow{
			{Key: "Matematika", Count: 40},
			{Key: "Fizika", Count: 0},
		},
		submittedByFaculty: []repository.CountRow{
			{Key: "Matematika", Count: 13},
		},
	}

	svc := NewStatsService(repo, newFakeGroupRepo(), nil, time.Minute, testLogger())

	rows, err := svc.FacultyFill(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "32.5", rows[0].Percent)
	// Zero roster never divides; the dashboard shows a flat 0.0.
	require.Equal(t, "0.0", rows[1].Percent)
}

func TestGroupFillResolvesNames(t *testing.T) {
	repo := &fakeStatsRepo{
		studentsByGroup:  []repository.CountRow{{Key: "101", Count: 20}},
		submittedByGroup: []repository.CountRow{{Key: "101", Count: 10}},
	}
	groups := newFakeGroupRepo(models.Group{Code: "101", Name: "MT-21", FacultyName: "Matematika"})

	svc := NewStatsService(repo, groups, nil, time.Minute, testLogger())

	rows, err := svc.GroupFill(context.Background(), "Matematika")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "MT-21", rows[0].GroupName)
	require.Equal(t, "50.0", rows[0].Percent)
}

func TestStatusBreakdownTotals(t *testing.T) {
	repo := &fakeStatsRepo{byStatus: []repository.CountRow{
		{Key: "Being checked", Count: 4},
		{Key: "green", Count: 10},
		{Key: "yellow", Count: 3},
		{Key: "red", Count: 1},
	}}

	svc := NewStatsService(repo, newFakeGroupRepo(), nil, time.Minute, testLogger())

	breakdown, err := svc.StatusBreakdown(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, int64(4), breakdown.BeingChecked)
	require.Equal(t, int64(10), breakdown.Green)
	require.Equal(t, int64(3), breakdown.Yellow)
	require.Equal(t, int64(1), breakdown.Red)
	require.Equal(t, int64(18), breakdown.Total)
}

func TestBoilerBucketsKeepCanonicalOrder(t *testing.T) {
	repo := &fakeStatsRepo{byBoiler: []repository.CountRow{
		{Key: "Elektropech", Count: 5},
		{Key: "nonsense", Count: 99},
	}}

	svc := NewStatsService(repo, newFakeGroupRepo(), nil, time.Minute, testLogger())

	buckets, err := svc.BoilerBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, len(boilerBucketTitles))
	require.Equal(t, "Ariston kotyol", buckets[0].Title)
	require.Zero(t, buckets[0].Count)
	require.Equal(t, int64(5), buckets[3].Count)

	for _, bucket := range buckets {
		require.NotEqual(t, "nonsense", bucket.Title)
	}
}

func TestMapPointsCarryStudentLabels(t *testing.T) {
	repo := &fakeStatsRepo{mapPoints: []models.Apartment{
		{
			ID:        21,
			Status:    models.ComplianceGreen,
			Latitude:  42.46,
			Longitude: 59.61,
			Student:   &models.Student{ID: 7, FullName: "Aliyev Vali", GroupName: "MT-21"},
		},
	}}

	svc := NewStatsService(repo, newFakeGroupRepo(), nil, time.Minute, testLogger())

	points, err := svc.MapPoints(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, "Aliyev Vali", points[0].StudentName)
	require.Equal(t, "MT-21", points[0].GroupName)
}

func TestDashboardCaches(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	repo := &fakeStatsRepo{
		students:  100,
		submitted: 40,
		byGender:  []repository.CountRow{{Key: "Erkak", Count: 25}, {Key: "Ayol", Count: 15}},
	}

	svc := NewStatsService(repo, newFakeGroupRepo(), redisClient, time.Minute, testLogger())

	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, "40.0", first.Percent)
	require.Equal(t, int64(25), first.Gender.Male)

	// A later run reads the cached aggregate, not the mutated repo.
	repo.students = 0
	repo.submitted = 0

	cached, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(100), cached.Students)
	require.Equal(t, "40.0", cached.Percent)
}
