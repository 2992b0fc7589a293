package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/observability"
	"github.com/karsu-its/ijara-api/internal/repository"
)

var (
	// ErrApartmentNotFound indicates the submission does not exist.
	ErrApartmentNotFound = errors.New("apartment not found")
	// ErrDuplicateSubmission means the student already reported this round.
	ErrDuplicateSubmission = errors.New("housing already submitted for this round")
	// ErrMissingProof means a required photo or field for the chosen
	// housing type was not provided.
	ErrMissingProof = errors.New("required housing proof missing")
	// ErrSubmissionLocked means the submission was already checked and can
	// only change through a new round.
	ErrSubmissionLocked = errors.New("submission already checked")
)

// FileUploader stores a proof photo and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SubmitFiles carries the multipart photos of a tenant submission.
type SubmitFiles struct {
	Boiler   *multipart.FileHeader
	GasStove *multipart.FileHeader
	Chimney  *multipart.FileHeader
	Addition *multipart.FileHeader
	Contract *multipart.FileHeader
}

// ApartmentService orchestrates housing submissions.
type ApartmentService interface {
	Submit(ctx context.Context, studentID uint, payload dto.ApartmentCreateRequest, files SubmitFiles) (dto.ApartmentResponse, error)
	Update(ctx context.Context, studentID, apartmentID uint, payload dto.ApartmentUpdateRequest) (dto.ApartmentResponse, error)
	MyApartments(ctx context.Context, studentID uint) ([]dto.ApartmentResponse, error)
	ByStatusAndGroup(ctx context.Context, status, groupCode string) ([]dto.ApartmentResponse, error)
	ByTypeAndGroup(ctx context.Context, housingType, groupCode string) ([]dto.ApartmentResponse, error)
	Clear(ctx context.Context, tutorID, apartmentID uint) error
}

type apartmentService struct {
	apartments    repository.ApartmentRepository
	permissions   repository.PermissionRepository
	students      repository.StudentRepository
	notifications repository.NotificationRepository
	tutors        repository.TutorRepository
	uploader      FileUploader
	push          PushSender
	announcer     Announcer
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewApartmentService constructs an ApartmentService instance.
func NewApartmentService(
	apartments repository.ApartmentRepository,
	permissions repository.PermissionRepository,
	students repository.StudentRepository,
	notifications repository.NotificationRepository,
	tutors repository.TutorRepository,
	uploader FileUploader,
	push PushSender,
	announcer Announcer,
	validate *validator.Validate,
	logger zerolog.Logger,
) ApartmentService {
	return &apartmentService{
		apartments:    apartments,
		permissions:   permissions,
		students:      students,
		notifications: notifications,
		tutors:        tutors,
		uploader:      uploader,
		push:          push,
		announcer:     announcer,
		validator:     validate,
		logger:        logger.With().Str("component", "apartment_service").Logger(),
		tracer:        otel.Tracer("github.com/karsu-its/ijara-api/internal/service/apartment"),
	}
}

func (s *apartmentService) Submit(ctx context.Context, studentID uint, payload dto.ApartmentCreateRequest, files SubmitFiles) (dto.ApartmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApartmentResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "apartments.submit", trace.WithAttributes(
		attribute.String("apartment.type", payload.Type),
	))
	defer span.End()

	student, err := s.students.GetByID(spanCtx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApartmentResponse{}, ErrStudentNotFound
		}
		return dto.ApartmentResponse{}, err
	}

	tutor, err := s.tutors.FindByGroupCode(spanCtx, student.GroupCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApartmentResponse{}, ErrRoundNotFound
		}
		return dto.ApartmentResponse{}, err
	}

	permission, err := s.permissions.ActiveByTutor(spanCtx, tutor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApartmentResponse{}, ErrRoundNotFound
		}
		return dto.ApartmentResponse{}, err
	}

	if _, err := s.apartments.GetByPermissionAndStudent(spanCtx, permission.ID, studentID); err == nil {
		return dto.ApartmentResponse{}, ErrDuplicateSubmission
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ApartmentResponse{}, err
	}

	// A submission flagged need_new may still be current; retire it so
	// the replacement becomes the only current row for the round.
	if err := s.apartments.SupersedeCurrent(spanCtx, permission.ID, studentID); err != nil {
		return dto.ApartmentResponse{}, err
	}

	apartment := models.Apartment{
		StudentID:    studentID,
		PermissionID: permission.ID,
		GroupCode:    student.GroupCode,
		Type:         models.ApartmentType(payload.Type),
		Current:      true,
	}

	switch apartment.Type {
	case models.ApartmentTenant:
		if err := s.fillTenant(spanCtx, &apartment, payload, files); err != nil {
			span.RecordError(err)
			return dto.ApartmentResponse{}, err
		}
	case models.ApartmentRelative, models.ApartmentLittleHouse:
		if payload.OwnerName == "" || payload.OwnerPhone == "" {
			return dto.ApartmentResponse{}, fmt.Errorf("%w: owner name and phone", ErrMissingProof)
		}
		apartment.OwnerName = payload.OwnerName
		apartment.OwnerPhone = payload.OwnerPhone
		apartment.Status = models.ComplianceGreen
	case models.ApartmentBedroom:
		if payload.BedroomNumber == "" || payload.RoomNumber == "" {
			return dto.ApartmentResponse{}, fmt.Errorf("%w: bedroom and room numbers", ErrMissingProof)
		}
		apartment.BedroomNumber = payload.BedroomNumber
		apartment.RoomNumber = payload.RoomNumber
		apartment.Status = models.ComplianceGreen
	}

	if err := s.apartments.Create(spanCtx, &apartment); err != nil {
		span.RecordError(err)
		return dto.ApartmentResponse{}, err
	}

	if apartment.Status == models.ComplianceGreen {
		s.acceptWithoutReview(spanCtx, student, permission, apartment)
	} else {
		s.acknowledgeTenant(spanCtx, student, permission, apartment)
	}

	observability.Submissions().WithLabelValues(string(apartment.Type)).Inc()
	s.logger.Info().
		Uint("student_id", studentID).
		Uint("permission_id", permission.ID).
		Str("type", string(apartment.Type)).
		Msg("housing submitted")

	created, err := s.apartments.GetByID(spanCtx, apartment.ID)
	if err != nil {
		return dto.ApartmentResponse{}, err
	}

	return dto.NewApartmentResponse(created), nil
}

func (s *apartmentService) fillTenant(ctx context.Context, apartment *models.Apartment, payload dto.ApartmentCreateRequest, files SubmitFiles) error {
	if files.Boiler == nil || files.GasStove == nil || files.Chimney == nil {
		return fmt.Errorf("%w: boiler, gas stove and chimney photos", ErrMissingProof)
	}
	if payload.Latitude == 0 || payload.Longitude == 0 {
		return fmt.Errorf("%w: location coordinates", ErrMissingProof)
	}

	boilerURL, err := s.uploadProof(ctx, files.Boiler)
	if err != nil {
		return err
	}
	gasStoveURL, err := s.uploadProof(ctx, files.GasStove)
	if err != nil {
		return err
	}
	chimneyURL, err := s.uploadProof(ctx, files.Chimney)
	if err != nil {
		return err
	}

	apartment.Boiler = models.FacilityProof{URL: boilerURL, Status: models.ComplianceBeingChecked}
	apartment.GasStove = models.FacilityProof{URL: gasStoveURL, Status: models.ComplianceBeingChecked}
	apartment.Chimney = models.FacilityProof{URL: chimneyURL, Status: models.ComplianceBeingChecked}
	apartment.Status = models.ComplianceBeingChecked
	apartment.BoilerTitle = payload.BoilerTitle
	apartment.Latitude = payload.Latitude
	apartment.Longitude = payload.Longitude
	apartment.Address = payload.Address
	apartment.SubDistrict = payload.SubDistrict

	if files.Addition != nil {
		if apartment.AdditionImage, err = s.uploadProof(ctx, files.Addition); err != nil {
			return err
		}
	}
	if files.Contract != nil {
		if apartment.ContractImage, err = s.uploadContract(ctx, files.Contract); err != nil {
			return err
		}
		apartment.Contract = true
	}

	return nil
}

// acknowledgeTenant swaps the student's stale resubmit entries for the
// blue "under review" one. The cleanup must land before the insert so
// the feed never shows contradicting colors.
func (s *apartmentService) acknowledgeTenant(ctx context.Context, student models.Student, permission models.Permission, apartment models.Apartment) {
	if err := s.notifications.DeleteByStudentAndColors(ctx, student.ID, []models.NotificationColor{
		models.NotificationRed,
		models.NotificationYellow,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to clear feed before review notice")
	}

	notification := models.Notification{
		StudentID:    student.ID,
		TutorID:      permission.TutorID,
		ApartmentID:  &apartment.ID,
		PermissionID: &permission.ID,
		Kind:         models.NotificationReport,
		Color:        models.NotificationBlue,
		Title:        "Tekshiruvda",
		Message:      "Turar joy ma'lumotlaringiz tekshiruvga qabul qilindi",
	}
	if err := s.notifications.Create(ctx, &notification); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to store review notice")
	} else if s.announcer != nil {
		s.announcer.Announce(notification)
	}
}

// acceptWithoutReview records the automatic green verdict for housing
// types that need no tutor visit, and tells the tutor about bedrooms.
func (s *apartmentService) acceptWithoutReview(ctx context.Context, student models.Student, permission models.Permission, apartment models.Apartment) {
	if err := s.notifications.DeleteByStudentAndColors(ctx, student.ID, []models.NotificationColor{
		models.NotificationRed,
		models.NotificationYellow,
		models.NotificationBlue,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to clear feed before auto accept")
	}

	notification := models.Notification{
		StudentID:    student.ID,
		TutorID:      permission.TutorID,
		ApartmentID:  &apartment.ID,
		PermissionID: &permission.ID,
		Kind:         models.NotificationReport,
		Color:        models.NotificationGreen,
		Title:        "Ma'lumot qabul qilindi",
		Message:      "Turar joy ma'lumotlaringiz tekshiruvsiz qabul qilindi",
	}
	if err := s.notifications.Create(ctx, &notification); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to store auto accept notification")
	} else if s.announcer != nil {
		s.announcer.Announce(notification)
	}

	if apartment.Type != models.ApartmentBedroom {
		return
	}

	congrats := models.Notification{
		StudentID:    student.ID,
		TutorID:      permission.TutorID,
		ApartmentID:  &apartment.ID,
		PermissionID: &permission.ID,
		Kind:         models.NotificationPush,
		Color:        models.NotificationGreen,
		Title:        "Tabriklaymiz",
		Message:      "Yotoqxona qaydingiz qabul qilindi",
	}
	if err := s.notifications.Create(ctx, &congrats); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to store push mirror")
	} else if s.push != nil && student.FCMToken != "" {
		if err := s.push.Send(ctx, student.FCMToken, congrats.Title, congrats.Message); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("push delivery failed")
		}
	}

	tutorNote := models.TutorNotification{
		TutorID:   permission.TutorID,
		StudentID: student.ID,
		Title:     "Yotoqxona qaydi",
		Message:   fmt.Sprintf("%s yotoqxonada turishini bildirdi", student.FullName),
	}
	if err := s.notifications.CreateForTutor(ctx, &tutorNote); err != nil {
		s.logger.Warn().Err(err).Uint("tutor_id", permission.TutorID).Msg("failed to store tutor notification")
	}

	if s.push != nil {
		tutor, err := s.tutors.GetByID(ctx, permission.TutorID)
		if err == nil && tutor.FCMToken != "" {
			// Push goes out best effort; the stored notification is the
			// source of truth.
			if err := s.push.Send(ctx, tutor.FCMToken, tutorNote.Title, tutorNote.Message); err != nil {
				s.logger.Warn().Err(err).Uint("tutor_id", tutor.ID).Msg("push delivery failed")
			}
		}
	}
}

func (s *apartmentService) uploadProof(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := validateImage(file); err != nil {
		return "", err
	}

	return s.uploadFile(ctx, file)
}

// uploadContract differs from uploadProof in what it accepts: rental
// contracts come in either photographed or as scanned PDFs.
func (s *apartmentService) uploadContract(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := validateDocument(file); err != nil {
		return "", err
	}

	return s.uploadFile(ctx, file)
}

func (s *apartmentService) uploadFile(ctx context.Context, file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload proof: %w", err)
	}

	return url, nil
}

func (s *apartmentService) Update(ctx context.Context, studentID, apartmentID uint, payload dto.ApartmentUpdateRequest) (dto.ApartmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApartmentResponse{}, err
	}

	apartment, err := s.apartments.GetByID(ctx, apartmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApartmentResponse{}, ErrApartmentNotFound
		}
		return dto.ApartmentResponse{}, err
	}

	if apartment.StudentID != studentID {
		return dto.ApartmentResponse{}, ErrApartmentNotFound
	}

	if apartment.Type == models.ApartmentTenant && apartment.Status != models.ComplianceBeingChecked {
		return dto.ApartmentResponse{}, ErrSubmissionLocked
	}

	if payload.BoilerTitle != nil {
		apartment.BoilerTitle = *payload.BoilerTitle
	}
	if payload.Latitude != nil {
		apartment.Latitude = *payload.Latitude
	}
	if payload.Longitude != nil {
		apartment.Longitude = *payload.Longitude
	}
	if payload.Address != nil {
		apartment.Address = *payload.Address
	}
	if payload.SubDistrict != nil {
		apartment.SubDistrict = *payload.SubDistrict
	}
	if payload.OwnerName != nil {
		apartment.OwnerName = *payload.OwnerName
	}
	if payload.OwnerPhone != nil {
		apartment.OwnerPhone = *payload.OwnerPhone
	}

	if err := s.apartments.Update(ctx, &apartment); err != nil {
		return dto.ApartmentResponse{}, err
	}

	return dto.NewApartmentResponse(apartment), nil
}

func (s *apartmentService) MyApartments(ctx context.Context, studentID uint) ([]dto.ApartmentResponse, error) {
	apartments, err := s.apartments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewApartmentResponseSlice(apartments), nil
}

func (s *apartmentService) ByStatusAndGroup(ctx context.Context, status, groupCode string) ([]dto.ApartmentResponse, error) {
	compliance := models.ComplianceStatus(status)
	if compliance != models.ComplianceBeingChecked && !compliance.ValidVerdict() {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	apartments, err := s.apartments.ListByStatusAndGroup(ctx, compliance, groupCode)
	if err != nil {
		return nil, err
	}

	return dto.NewApartmentResponseSlice(apartments), nil
}

func (s *apartmentService) ByTypeAndGroup(ctx context.Context, housingType, groupCode string) ([]dto.ApartmentResponse, error) {
	switch models.ApartmentType(housingType) {
	case models.ApartmentTenant, models.ApartmentRelative, models.ApartmentLittleHouse, models.ApartmentBedroom:
	default:
		return nil, fmt.Errorf("unknown housing type %q", housingType)
	}

	apartments, err := s.apartments.ListByTypeAndGroup(ctx, models.ApartmentType(housingType), groupCode)
	if err != nil {
		return nil, err
	}

	return dto.NewApartmentResponseSlice(apartments), nil
}

// Clear removes a submission so the student can report again inside the
// same round. Only the tutor of the group may do it.
func (s *apartmentService) Clear(ctx context.Context, tutorID, apartmentID uint) error {
	apartment, err := s.apartments.GetByID(ctx, apartmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApartmentNotFound
		}
		return err
	}

	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return err
	}

	if !tutorOversees(tutor, apartment.GroupCode) {
		return ErrGroupNotAssigned
	}

	if err := s.apartments.Delete(ctx, apartment.ID); err != nil {
		return err
	}

	s.logger.Info().Uint("tutor_id", tutorID).Uint("apartment_id", apartmentID).Msg("submission cleared")

	return nil
}

func validateImage(file *multipart.FileHeader) error {
	return validateMIME(file, []string{"image/jpeg", "image/png", "image/webp", "image/heic"})
}

func validateDocument(file *multipart.FileHeader) error {
	return validateMIME(file, []string{"image/jpeg", "image/png", "image/webp", "image/heic", "application/pdf"})
}

func validateMIME(file *multipart.FileHeader, allowed []string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("%w: unsupported file type %s", ErrMissingProof, mime.String())
}
