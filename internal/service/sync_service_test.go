package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/pkg/hemis"
)

type fakeSyncRepo struct {
	mu       sync.Mutex
	running  bool
	state    models.SyncState
	upserted []models.Student
}

func (r *fakeSyncRepo) State(ctx context.Context) (models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, nil
}

func (r *fakeSyncRepo) TryStart(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false, nil
	}
	r.running = true
	r.state.Running = true
	return true, nil
}

func (r *fakeSyncRepo) Finish(ctx context.Context, total, pagesFailed int, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.state.Running = false
	r.state.TotalSynced = total
	r.state.PagesFailed = pagesFailed
	r.state.LastError = ""
	if runErr != nil {
		r.state.LastError = runErr.Error()
	}
	return nil
}

func (r *fakeSyncRepo) UpsertStudents(ctx context.Context, students []models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, students...)
	return nil
}

type fakeRoster struct {
	mu       sync.Mutex
	pages    map[int]*hemis.StudentList
	failures map[int]int
}

func (f *fakeRoster) StudentPage(ctx context.Context, page, limit int) (*hemis.StudentList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if remaining := f.failures[page]; remaining > 0 {
		f.failures[page] = remaining - 1
		return nil, hemis.ErrUnavailable
	}
	list, ok := f.pages[page]
	if !ok {
		return nil, hemis.ErrUnavailable
	}
	return list, nil
}

func (f *fakeRoster) UniversityProfile(ctx context.Context) (*hemis.University, error) {
	return &hemis.University{
		Name:      "Qoraqalpoq davlat universiteti",
		Faculties: []hemis.Named{{Code: "11", Name: "Matematika"}},
	}, nil
}

func rosterAccount(idNumber, name string, groupID int) hemis.Account {
	return hemis.Account{
		StudentIDNumber: idNumber,
		FullName:        name,
		Group:           hemis.GroupInfo{ID: groupID, Name: "MT-21"},
		Department:      hemis.Named{Code: "11", Name: "Matematika"},
	}
}

func rosterPages(pageCount int, pages map[int][]hemis.Account) map[int]*hemis.StudentList {
	out := make(map[int]*hemis.StudentList, len(pages))
	for page, accounts := range pages {
		list := &hemis.StudentList{Items: accounts}
		list.Pagination.PageCount = pageCount
		list.Pagination.Page = page
		out[page] = list
	}
	return out
}

func TestSyncRunDeduplicatesRoster(t *testing.T) {
	repo := &fakeSyncRepo{}
	groups := newFakeGroupRepo()
	roster := &fakeRoster{
		pages: rosterPages(2, map[int][]hemis.Account{
			1: {
				rosterAccount("100000000001", "Aliyev Vali", 42),
				rosterAccount("100000000002", "Karimova Dilnoza", 42),
			},
			2: {
				// Same student shows up again after a mid-sync shuffle.
				rosterAccount("100000000002", "Karimova Dilnoza", 42),
				rosterAccount("100000000003", "Tashkentov Olim", 43),
			},
		}),
		failures: map[int]int{},
	}

	svc := NewSyncService(repo, groups, roster, 200, 4, testLogger())
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, repo.upserted, 3)
	require.Len(t, groups.upserted, 2)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.False(t, status.Running)
	require.Equal(t, 3, status.TotalSynced)
	require.Zero(t, status.PagesFailed)
}

func TestSyncRunRetriesPages(t *testing.T) {
	repo := &fakeSyncRepo{}
	roster := &fakeRoster{
		pages: rosterPages(2, map[int][]hemis.Account{
			1: {rosterAccount("100000000001", "Aliyev Vali", 42)},
			2: {rosterAccount("100000000002", "Karimova Dilnoza", 42)},
		}),
		// Two transient failures are absorbed by the retries.
		failures: map[int]int{2: 2},
	}

	svc := NewSyncService(repo, newFakeGroupRepo(), roster, 200, 2, testLogger())
	require.NoError(t, svc.Run(context.Background()))
	require.Len(t, repo.upserted, 2)
}

func TestSyncRunCountsLostPages(t *testing.T) {
	repo := &fakeSyncRepo{}
	roster := &fakeRoster{
		pages: rosterPages(2, map[int][]hemis.Account{
			1: {rosterAccount("100000000001", "Aliyev Vali", 42)},
			2: {rosterAccount("100000000002", "Karimova Dilnoza", 42)},
		}),
		failures: map[int]int{2: 10},
	}

	svc := NewSyncService(repo, newFakeGroupRepo(), roster, 200, 2, testLogger())
	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, repo.upserted, 1)
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, status.PagesFailed)
}

func TestSyncRunExclusive(t *testing.T) {
	repo := &fakeSyncRepo{running: true}
	svc := NewSyncService(repo, newFakeGroupRepo(), &fakeRoster{}, 200, 2, testLogger())

	err := svc.Run(context.Background())
	require.ErrorIs(t, err, ErrSyncAlreadyRunning)
}

func TestSyncRunFirstPageFailure(t *testing.T) {
	repo := &fakeSyncRepo{}
	roster := &fakeRoster{pages: map[int]*hemis.StudentList{}, failures: map[int]int{1: 10}}

	svc := NewSyncService(repo, newFakeGroupRepo(), roster, 200, 2, testLogger())
	err := svc.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, hemis.ErrUnavailable))

	// The lock is released so the next trigger can run.
	acquired, err := repo.TryStart(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestSyncFaculties(t *testing.T) {
	svc := NewSyncService(&fakeSyncRepo{}, newFakeGroupRepo(), &fakeRoster{}, 200, 2, testLogger())

	faculties, err := svc.Faculties(context.Background())
	require.NoError(t, err)
	require.Len(t, faculties, 1)
	require.Equal(t, "Matematika", faculties[0].Name)
}
