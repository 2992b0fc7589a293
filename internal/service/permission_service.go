package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/repository"
)

var (
	// ErrRoundNotFound indicates no open review round for the student's
	// tutor.
	ErrRoundNotFound = errors.New("review round not found")
	// ErrGroupNotAssigned means the tutor does not oversee that group.
	ErrGroupNotAssigned = errors.New("group is not assigned to this tutor")
)

// Round-start feed text shown to every student of the tutor's groups.
const (
	resubmitTitle   = "Yangi tekshiruv boshlandi"
	resubmitMessage = "Ijara ma'lumotlaringizni qaytadan yuboring"
)

// PermissionService orchestrates review rounds.
type PermissionService interface {
	StartRound(ctx context.Context, tutorID uint) (dto.PermissionResponse, error)
	MyRounds(ctx context.Context, tutorID uint) ([]dto.PermissionResponse, error)
	RoundGroups(ctx context.Context, tutorID uint) ([]dto.RoundGroupSummary, error)
	RoundGroupDetail(ctx context.Context, tutorID uint, groupCode string) ([]dto.RoundGroupDetail, error)
	RequestResubmission(ctx context.Context, tutorID, studentID uint) error
	ActiveRoundForStudent(ctx context.Context, studentID uint) (dto.PermissionResponse, error)
}

type permissionService struct {
	permissions   repository.PermissionRepository
	students      repository.StudentRepository
	apartments    repository.ApartmentRepository
	notifications repository.NotificationRepository
	tutors        repository.TutorRepository
	announcer     Announcer
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewPermissionService constructs a PermissionService instance.
func NewPermissionService(
	permissions repository.PermissionRepository,
	students repository.StudentRepository,
	apartments repository.ApartmentRepository,
	notifications repository.NotificationRepository,
	tutors repository.TutorRepository,
	announcer Announcer,
	logger zerolog.Logger,
) PermissionService {
	return &permissionService{
		permissions:   permissions,
		students:      students,
		apartments:    apartments,
		notifications: notifications,
		tutors:        tutors,
		announcer:     announcer,
		logger:        logger.With().Str("component", "permission_service").Logger(),
		tracer:        otel.Tracer("github.com/karsu-its/ijara-api/internal/service/permission"),
	}
}

// StartRound opens one review round covering every group the tutor
// oversees. Any round the tutor still has open is finished first, so a
// tutor never runs two rounds at once.
func (s *permissionService) StartRound(ctx context.Context, tutorID uint) (dto.PermissionResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "permissions.start_round", trace.WithAttributes(
		attribute.Int("tutor.id", int(tutorID)),
	))
	defer span.End()

	tutor, err := s.tutors.GetByID(spanCtx, tutorID)
	if err != nil {
		return dto.PermissionResponse{}, err
	}

	var studentIDs []uint
	for _, ref := range tutor.Groups {
		students, err := s.students.ListByGroupCode(spanCtx, ref.Code)
		if err != nil {
			return dto.PermissionResponse{}, err
		}
		for _, student := range students {
			studentIDs = append(studentIDs, student.ID)
		}
	}

	permission := models.Permission{
		TutorID: tutorID,
		Status:  models.PermissionProcess,
	}

	err = s.permissions.StartRound(spanCtx, repository.RoundStart{
		Permission: &permission,
		StudentIDs: studentIDs,
		Title:      resubmitTitle,
		Message:    resubmitMessage,
	})
	if err != nil {
		span.RecordError(err)
		return dto.PermissionResponse{}, err
	}

	if s.announcer != nil {
		for _, studentID := range studentIDs {
			s.announcer.Announce(models.Notification{
				StudentID:    studentID,
				TutorID:      tutorID,
				PermissionID: &permission.ID,
				Kind:         models.NotificationReport,
				Color:        models.NotificationRed,
				Title:        resubmitTitle,
				Message:      resubmitMessage,
				NeedData:     true,
			})
		}
	}

	s.logger.Info().
		Uint("tutor_id", tutorID).
		Int("groups", len(tutor.Groups)).
		Int("students", len(studentIDs)).
		Msg("review round started")

	return dto.NewPermissionResponse(permission), nil
}

func (s *permissionService) MyRounds(ctx context.Context, tutorID uint) ([]dto.PermissionResponse, error) {
	permissions, err := s.permissions.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	responses := dto.NewPermissionResponseSlice(permissions)
	for i := range responses {
		responses[i].Submitted, err = s.apartments.CountByPermission(ctx, responses[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return responses, nil
}

// RoundGroups builds the tutor's overview: per assigned group, roster size
// against submissions of the open round split by verdict.
func (s *permissionService) RoundGroups(ctx context.Context, tutorID uint) ([]dto.RoundGroupSummary, error) {
	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string][]models.Apartment)
	permission, err := s.permissions.ActiveByTutor(ctx, tutorID)
	switch {
	case err == nil:
		apartments, err := s.apartments.ListByPermission(ctx, permission.ID)
		if err != nil {
			return nil, err
		}
		for _, apartment := range apartments {
			byGroup[apartment.GroupCode] = append(byGroup[apartment.GroupCode], apartment)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No open round; the overview still shows roster sizes.
	default:
		return nil, err
	}

	summaries := make([]dto.RoundGroupSummary, 0, len(tutor.Groups))
	for _, ref := range tutor.Groups {
		summary := dto.RoundGroupSummary{GroupCode: ref.Code, GroupName: ref.Name}

		summary.Students, err = s.students.CountByGroupCode(ctx, ref.Code)
		if err != nil {
			return nil, err
		}

		apartments := byGroup[ref.Code]
		summary.Submitted = int64(len(apartments))
		for _, apartment := range apartments {
			switch apartment.Status {
			case models.ComplianceGreen:
				summary.Green++
			case models.ComplianceYellow:
				summary.Yellow++
			case models.ComplianceRed:
				summary.Red++
			default:
				summary.BeingChecked++
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *permissionService) RoundGroupDetail(ctx context.Context, tutorID uint, groupCode string) ([]dto.RoundGroupDetail, error) {
	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	if !tutorOversees(tutor, groupCode) {
		return nil, ErrGroupNotAssigned
	}

	students, err := s.students.ListByGroupCode(ctx, groupCode)
	if err != nil {
		return nil, err
	}

	permission, err := s.permissions.ActiveByTutor(ctx, tutorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}

	apartments, err := s.apartments.ListByPermission(ctx, permission.ID)
	if err != nil {
		return nil, err
	}

	byStudent := make(map[uint]models.Apartment, len(apartments))
	for _, apartment := range apartments {
		byStudent[apartment.StudentID] = apartment
	}

	details := make([]dto.RoundGroupDetail, 0, len(students))
	for _, student := range students {
		detail := dto.RoundGroupDetail{Student: dto.NewStudentResponse(student)}
		if apartment, ok := byStudent[student.ID]; ok {
			response := dto.NewApartmentResponse(apartment)
			detail.Apartment = &response
		}
		details = append(details, detail)
	}

	return details, nil
}

// RequestResubmission retires a single student's current submission,
// clears their report feed and asks them to submit again, without
// touching the rest of the group.
func (s *permissionService) RequestResubmission(ctx context.Context, tutorID, studentID uint) error {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return err
	}

	if !tutorOversees(tutor, student.GroupCode) {
		return ErrGroupNotAssigned
	}

	permission, err := s.permissions.ActiveByTutor(ctx, tutorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoundNotFound
		}
		return err
	}

	var apartmentID *uint
	if apartment, err := s.apartments.GetByPermissionAndStudent(ctx, permission.ID, studentID); err == nil {
		if err := s.apartments.SupersedeCurrent(ctx, permission.ID, studentID); err != nil {
			return err
		}
		apartmentID = &apartment.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	reportColors := []models.NotificationColor{
		models.NotificationRed,
		models.NotificationYellow,
		models.NotificationBlue,
	}
	if err := s.notifications.DeleteByStudentAndColors(ctx, studentID, reportColors); err != nil {
		return err
	}

	notification := models.Notification{
		StudentID:    studentID,
		TutorID:      tutorID,
		ApartmentID:  apartmentID,
		PermissionID: &permission.ID,
		Kind:         models.NotificationReport,
		Color:        models.NotificationRed,
		Title:        resubmitTitle,
		Message:      resubmitMessage,
		NeedData:     true,
	}
	if err := s.notifications.Create(ctx, &notification); err != nil {
		return err
	}

	if s.announcer != nil {
		s.announcer.Announce(notification)
	}

	s.logger.Info().Uint("tutor_id", tutorID).Uint("student_id", studentID).Msg("resubmission requested")

	return nil
}

func (s *permissionService) ActiveRoundForStudent(ctx context.Context, studentID uint) (dto.PermissionResponse, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PermissionResponse{}, ErrStudentNotFound
		}
		return dto.PermissionResponse{}, err
	}

	tutor, err := s.tutors.FindByGroupCode(ctx, student.GroupCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PermissionResponse{}, ErrRoundNotFound
		}
		return dto.PermissionResponse{}, err
	}

	permission, err := s.permissions.ActiveByTutor(ctx, tutor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PermissionResponse{}, ErrRoundNotFound
		}
		return dto.PermissionResponse{}, err
	}

	return dto.NewPermissionResponse(permission), nil
}

func tutorOversees(tutor models.Tutor, groupCode string) bool {
	for _, ref := range tutor.Groups {
		if ref.Code == groupCode {
			return true
		}
	}
	return false
}
