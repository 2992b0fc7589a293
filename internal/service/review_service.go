package service

import (
	"context"
	"errors"

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

// ErrResubmitOutstanding blocks a new check while the student still has a
// yellow fix request in their feed.
var ErrResubmitOutstanding = errors.New("student has an outstanding fix request")

// Feed text per verdict color.
var verdictTitles = map[models.NotificationColor]string{
	models.NotificationGreen:  "Turar joy tasdiqlandi",
	models.NotificationYellow: "Kamchiliklar topildi",
	models.NotificationRed:    "Turar joy rad etildi",
}

// ReviewService records tutor verdicts on tenant submissions.
type ReviewService interface {
	Check(ctx context.Context, tutorID, apartmentID uint, payload dto.CheckRequest) (dto.ApartmentResponse, error)
}

type reviewService struct {
	apartments    repository.ApartmentRepository
	notifications repository.NotificationRepository
	tutors        repository.TutorRepository
	announcer     Announcer
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewReviewService constructs a ReviewService instance.
func NewReviewService(
	apartments repository.ApartmentRepository,
	notifications repository.NotificationRepository,
	tutors repository.TutorRepository,
	announcer Announcer,
	validate *validator.Validate,
	logger zerolog.Logger,
) ReviewService {
	return &reviewService{
		apartments:    apartments,
		notifications: notifications,
		tutors:        tutors,
		announcer:     announcer,
		validator:     validate,
		logger:        logger.With().Str("component", "review_service").Logger(),
		tracer:        otel.Tracer("github.com/karsu-its/ijara-api/internal/service/review"),
	}
}

// Check stores per-facility verdicts and derives the submission status,
// red outranking yellow outranking green. While the submission still has
// a yellow notification from an earlier check, new verdicts on it are
// rejected so the fix request cannot be silently overwritten. A yellow
// verdict also flags the submission need_new, freeing the student's
// one-per-round slot for the fixed replacement.
func (s *reviewService) Check(ctx context.Context, tutorID, apartmentID uint, payload dto.CheckRequest) (dto.ApartmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApartmentResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "reviews.check", trace.WithAttributes(
		attribute.Int("apartment.id", int(apartmentID)),
	))
	defer span.End()

	apartment, err := s.apartments.GetByID(spanCtx, apartmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApartmentResponse{}, ErrApartmentNotFound
		}
		return dto.ApartmentResponse{}, err
	}

	tutor, err := s.tutors.GetByID(spanCtx, tutorID)
	if err != nil {
		return dto.ApartmentResponse{}, err
	}

	if !tutorOversees(tutor, apartment.GroupCode) {
		return dto.ApartmentResponse{}, ErrGroupNotAssigned
	}

	blocked, err := s.notifications.HasColor(spanCtx, apartment.StudentID, apartment.ID, models.NotificationYellow)
	if err != nil {
		return dto.ApartmentResponse{}, err
	}
	if blocked {
		return dto.ApartmentResponse{}, ErrResubmitOutstanding
	}

	apartment.Boiler.Status = models.ComplianceStatus(payload.Boiler)
	apartment.GasStove.Status = models.ComplianceStatus(payload.GasStove)
	apartment.Chimney.Status = models.ComplianceStatus(payload.Chimney)
	apartment.Status = apartment.DeriveStatus()
	if apartment.Status == models.ComplianceYellow {
		apartment.NeedNew = true
	}

	color := models.ColorForCompliance(apartment.Status)
	message := payload.Message
	if message == "" {
		message = verdictTitles[color]
	}

	notification := models.Notification{
		StudentID:    apartment.StudentID,
		TutorID:      tutorID,
		ApartmentID:  &apartment.ID,
		PermissionID: &apartment.PermissionID,
		Kind:         models.NotificationReport,
		Color:        color,
		Title:        verdictTitles[color],
		Message:      message,
		NeedData:     color != models.NotificationGreen,
	}

	if err := s.apartments.RecordCheck(spanCtx, &apartment, &notification); err != nil {
		span.RecordError(err)
		return dto.ApartmentResponse{}, err
	}

	if s.announcer != nil {
		s.announcer.Announce(notification)
	}

	observability.Checks().WithLabelValues(string(apartment.Status)).Inc()
	s.logger.Info().
		Uint("tutor_id", tutorID).
		Uint("apartment_id", apartmentID).
		Str("status", string(apartment.Status)).
		Msg("housing check recorded")

	return dto.NewApartmentResponse(apartment), nil
}
