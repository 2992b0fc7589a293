package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type fakeStudentRepo struct {
	students map[uint]models.Student
	byNumber map[string]models.Student
	updated  []models.Student
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{
		students: make(map[uint]models.Student),
		byNumber: make(map[string]models.Student),
	}
	for _, student := range students {
		repo.students[student.ID] = student
		repo.byNumber[student.StudentIDNumber] = student
	}
	return repo
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (r *fakeStudentRepo) GetByIDNumber(ctx context.Context, idNumber string) (models.Student, error) {
	student, ok := r.byNumber[idNumber]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (r *fakeStudentRepo) ListByGroupCode(ctx context.Context, groupCode string) ([]models.Student, error) {
	var out []models.Student
	for _, student := range r.students {
		if student.GroupCode == groupCode {
			out = append(out, student)
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) CountByGroupCode(ctx context.Context, groupCode string) (int64, error) {
	students, _ := r.ListByGroupCode(ctx, groupCode)
	return int64(len(students)), nil
}

func (r *fakeStudentRepo) Search(ctx context.Context, name string, limit int) ([]models.Student, error) {
	var out []models.Student
	for _, student := range r.students {
		out = append(out, student)
	}
	return out, nil
}

func (r *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if student.ID == 0 {
		student.ID = uint(len(r.students) + 1)
	}
	r.students[student.ID] = *student
	r.byNumber[student.StudentIDNumber] = *student
	r.updated = append(r.updated, *student)
	return nil
}

type fakeTutorRepo struct {
	tutors map[uint]models.Tutor
}

func newFakeTutorRepo(tutors ...models.Tutor) *fakeTutorRepo {
	repo := &fakeTutorRepo{tutors: make(map[uint]models.Tutor)}
	for _, tutor := range tutors {
		repo.tutors[tutor.ID] = tutor
	}
	return repo
}

func (r *fakeTutorRepo) GetByID(ctx context.Context, id uint) (models.Tutor, error) {
	tutor, ok := r.tutors[id]
	if !ok {
		return models.Tutor{}, gorm.ErrRecordNotFound
	}
	return tutor, nil
}

func (r *fakeTutorRepo) GetByLogin(ctx context.Context, login string) (models.Tutor, error) {
	for _, tutor := range r.tutors {
		if tutor.Login == login {
			return tutor, nil
		}
	}
	return models.Tutor{}, gorm.ErrRecordNotFound
}

func (r *fakeTutorRepo) FindByGroupCode(ctx context.Context, groupCode string) (models.Tutor, error) {
	for _, tutor := range r.tutors {
		for _, ref := range tutor.Groups {
			if ref.Code == groupCode {
				return tutor, nil
			}
		}
	}
	return models.Tutor{}, gorm.ErrRecordNotFound
}

func (r *fakeTutorRepo) ListAll(ctx context.Context) ([]models.Tutor, error) {
	var out []models.Tutor
	for _, tutor := range r.tutors {
		out = append(out, tutor)
	}
	return out, nil
}

func (r *fakeTutorRepo) Create(ctx context.Context, tutor *models.Tutor) error {
	if tutor.ID == 0 {
		tutor.ID = uint(len(r.tutors) + 1)
	}
	r.tutors[tutor.ID] = *tutor
	return nil
}

func (r *fakeTutorRepo) Update(ctx context.Context, tutor *models.Tutor) error {
	r.tutors[tutor.ID] = *tutor
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        uint
	notifications []models.Notification
	tutorNotes    []models.TutorNotification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	notification.ID = r.nextID
	if notification.Kind == "" {
		notification.Kind = models.NotificationReport
	}
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByStudent(ctx context.Context, studentID uint, kind models.NotificationKind, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, notification := range r.notifications {
		if notification.StudentID != studentID {
			continue
		}
		if kind != "" && notification.Kind != kind {
			continue
		}
		out = append(out, notification)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, studentID uint, kind models.NotificationKind) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for i, notification := range r.notifications {
		if notification.StudentID != studentID || notification.Read {
			continue
		}
		if kind != "" && notification.Kind != kind {
			continue
		}
		r.notifications[i].Read = true
		updated++
	}
	return updated, nil
}

func (r *fakeNotificationRepo) DeleteByID(ctx context.Context, id, studentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, notification := range r.notifications {
		if notification.ID == id && notification.StudentID == studentID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, notification := range r.notifications {
		if notification.ID == id && notification.StudentID == studentID {
			r.notifications[i].Read = true
			return r.notifications[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) HasColor(ctx context.Context, studentID, apartmentID uint, color models.NotificationColor) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if notification.StudentID != studentID || notification.Kind != models.NotificationReport || notification.Color != color {
			continue
		}
		if notification.ApartmentID != nil && *notification.ApartmentID == apartmentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) DeleteByStudentAndColors(ctx context.Context, studentID uint, colors []models.NotificationColor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.notifications[:0]
	for _, notification := range r.notifications {
		drop := false
		if notification.StudentID == studentID && notification.Kind == models.NotificationReport {
			for _, color := range colors {
				if notification.Color == color {
					drop = true
					break
				}
			}
		}
		if !drop {
			kept = append(kept, notification)
		}
	}
	r.notifications = kept
	return nil
}

func (r *fakeNotificationRepo) CreateForTutor(ctx context.Context, notification *models.TutorNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	notification.ID = r.nextID
	r.tutorNotes = append(r.tutorNotes, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByTutor(ctx context.Context, tutorID uint, limit, offset int) ([]models.TutorNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TutorNotification
	for _, note := range r.tutorNotes {
		if note.TutorID == tutorID {
			out = append(out, note)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkTutorRead(ctx context.Context, id, tutorID uint) (models.TutorNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, note := range r.tutorNotes {
		if note.ID == id && note.TutorID == tutorID {
			r.tutorNotes[i].Read = true
			return r.tutorNotes[i], nil
		}
	}
	return models.TutorNotification{}, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) colorsFor(studentID uint) []models.NotificationColor {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationColor
	for _, notification := range r.notifications {
		if notification.StudentID == studentID {
			out = append(out, notification.Color)
		}
	}
	return out
}

type fakePermissionRepo struct {
	permissions map[uint]models.Permission
	started     []repository.RoundStart
}

func newFakePermissionRepo(permissions ...models.Permission) *fakePermissionRepo {
	repo := &fakePermissionRepo{permissions: make(map[uint]models.Permission)}
	for _, permission := range permissions {
		repo.permissions[permission.ID] = permission
	}
	return repo
}

func (r *fakePermissionRepo) GetByID(ctx context.Context, id uint) (models.Permission, error) {
	permission, ok := r.permissions[id]
	if !ok {
		return models.Permission{}, gorm.ErrRecordNotFound
	}
	return permission, nil
}

func (r *fakePermissionRepo) ActiveByTutor(ctx context.Context, tutorID uint) (models.Permission, error) {
	for _, permission := range r.permissions {
		if permission.TutorID == tutorID && permission.IsOpen() {
			return permission, nil
		}
	}
	return models.Permission{}, gorm.ErrRecordNotFound
}

func (r *fakePermissionRepo) ListByTutor(ctx context.Context, tutorID uint) ([]models.Permission, error) {
	var out []models.Permission
	for _, permission := range r.permissions {
		if permission.TutorID == tutorID {
			out = append(out, permission)
		}
	}
	return out, nil
}

func (r *fakePermissionRepo) StartRound(ctx context.Context, start repository.RoundStart) error {
	for id, permission := range r.permissions {
		if permission.TutorID == start.Permission.TutorID && permission.IsOpen() {
			permission.Status = models.PermissionFinished
			r.permissions[id] = permission
		}
	}
	start.Permission.ID = uint(len(r.permissions) + 1)
	r.permissions[start.Permission.ID] = *start.Permission
	r.started = append(r.started, start)
	return nil
}

type fakeApartmentRepo struct {
	nextID     uint
	apartments map[uint]models.Apartment
	checked    []models.Notification
}

func newFakeApartmentRepo(apartments ...models.Apartment) *fakeApartmentRepo {
	repo := &fakeApartmentRepo{apartments: make(map[uint]models.Apartment)}
	for _, apartment := range apartments {
		repo.apartments[apartment.ID] = apartment
		if apartment.ID > repo.nextID {
			repo.nextID = apartment.ID
		}
	}
	return repo
}

func (r *fakeApartmentRepo) GetByID(ctx context.Context, id uint) (models.Apartment, error) {
	apartment, ok := r.apartments[id]
	if !ok {
		return models.Apartment{}, gorm.ErrRecordNotFound
	}
	return apartment, nil
}

func (r *fakeApartmentRepo) GetByPermissionAndStudent(ctx context.Context, permissionID, studentID uint) (models.Apartment, error) {
	for _, apartment := range r.apartments {
		if apartment.PermissionID == permissionID && apartment.StudentID == studentID && apartment.Current && !apartment.NeedNew {
			return apartment, nil
		}
	}
	return models.Apartment{}, gorm.ErrRecordNotFound
}

func (r *fakeApartmentRepo) SupersedeCurrent(ctx context.Context, permissionID, studentID uint) error {
	for id, apartment := range r.apartments {
		if apartment.PermissionID == permissionID && apartment.StudentID == studentID && apartment.Current {
			apartment.Current = false
			apartment.NeedNew = true
			r.apartments[id] = apartment
		}
	}
	return nil
}

func (r *fakeApartmentRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.Apartment, error) {
	var out []models.Apartment
	for _, apartment := range r.apartments {
		if apartment.StudentID == studentID {
			out = append(out, apartment)
		}
	}
	return out, nil
}

func (r *fakeApartmentRepo) ListByStatusAndGroup(ctx context.Context, status models.ComplianceStatus, groupCode string) ([]models.Apartment, error) {
	var out []models.Apartment
	for _, apartment := range r.apartments {
		if apartment.Status == status && apartment.GroupCode == groupCode && apartment.Current {
			out = append(out, apartment)
		}
	}
	return out, nil
}

func (r *fakeApartmentRepo) ListByTypeAndGroup(ctx context.Context, housingType models.ApartmentType, groupCode string) ([]models.Apartment, error) {
	var out []models.Apartment
	for _, apartment := range r.apartments {
		if apartment.Type == housingType && apartment.GroupCode == groupCode && apartment.Current {
			out = append(out, apartment)
		}
	}
	return out, nil
}

func (r *fakeApartmentRepo) ListByPermission(ctx context.Context, permissionID uint) ([]models.Apartment, error) {
	var out []models.Apartment
	for _, apartment := range r.apartments {
		if apartment.PermissionID == permissionID && apartment.Current {
			out = append(out, apartment)
		}
	}
	return out, nil
}

func (r *fakeApartmentRepo) CountByPermission(ctx context.Context, permissionID uint) (int64, error) {
	var count int64
	for _, apartment := range r.apartments {
		if apartment.PermissionID == permissionID && apartment.Current {
			count++
		}
	}
	return count, nil
}

func (r *fakeApartmentRepo) Create(ctx context.Context, apartment *models.Apartment) error {
	r.nextID++
	apartment.ID = r.nextID
	r.apartments[apartment.ID] = *apartment
	return nil
}

func (r *fakeApartmentRepo) Update(ctx context.Context, apartment *models.Apartment) error {
	r.apartments[apartment.ID] = *apartment
	return nil
}

func (r *fakeApartmentRepo) Delete(ctx context.Context, id uint) error {
	delete(r.apartments, id)
	return nil
}

func (r *fakeApartmentRepo) RecordCheck(ctx context.Context, apartment *models.Apartment, notification *models.Notification) error {
	r.apartments[apartment.ID] = *apartment
	r.checked = append(r.checked, *notification)
	return nil
}

type fakeGroupRepo struct {
	groups   map[string]models.Group
	upserted []models.Group
}

func newFakeGroupRepo(groups ...models.Group) *fakeGroupRepo {
	repo := &fakeGroupRepo{groups: make(map[string]models.Group)}
	for _, group := range groups {
		repo.groups[group.Code] = group
	}
	return repo
}

func (r *fakeGroupRepo) GetByCode(ctx context.Context, code string) (models.Group, error) {
	group, ok := r.groups[code]
	if !ok {
		return models.Group{}, gorm.ErrRecordNotFound
	}
	return group, nil
}

func (r *fakeGroupRepo) ListByFaculty(ctx context.Context, facultyName string) ([]models.Group, error) {
	var out []models.Group
	for _, group := range r.groups {
		if group.FacultyName == facultyName {
			out = append(out, group)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) ListByCodes(ctx context.Context, codes []string) ([]models.Group, error) {
	var out []models.Group
	for _, code := range codes {
		if group, ok := r.groups[code]; ok {
			out = append(out, group)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) Upsert(ctx context.Context, group *models.Group) error {
	r.groups[group.Code] = *group
	r.upserted = append(r.upserted, *group)
	return nil
}

type fakeAnnouncer struct {
	mu        sync.Mutex
	announced []models.Notification
}

func (a *fakeAnnouncer) Announce(notification models.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announced = append(a.announced, notification)
}

func (a *fakeAnnouncer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.announced)
}
