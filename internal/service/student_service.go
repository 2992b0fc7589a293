package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/repository"
)

// StudentService serves roster profiles and the self-service fields a
// student may maintain themselves.
type StudentService interface {
	Profile(ctx context.Context, id uint) (dto.StudentResponse, error)
	UpdateProfile(ctx context.Context, id uint, req dto.StudentProfileUpdateRequest) (dto.StudentResponse, error)
	Search(ctx context.Context, name string, limit int) ([]dto.StudentResponse, error)
	ListByGroup(ctx context.Context, groupCode string) ([]dto.StudentResponse, error)
}

type studentService struct {
	repo      repository.StudentRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewStudentService constructs a student profile service.
func NewStudentService(repo repository.StudentRepository, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) Profile(ctx context.Context, id uint) (dto.StudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

// UpdateProfile writes only the fields present in the request so partial
// updates never blank the others.
func (s *studentService) UpdateProfile(ctx context.Context, id uint, req dto.StudentProfileUpdateRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	if req.RoommateCount != nil {
		student.RoommateCount = strings.TrimSpace(s.sanitizer.Sanitize(*req.RoommateCount))
	}
	if req.Other != nil {
		student.Other = strings.TrimSpace(s.sanitizer.Sanitize(*req.Other))
	}
	if req.FCMToken != nil {
		student.FCMToken = strings.TrimSpace(*req.FCMToken)
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Search(ctx context.Context, name string, limit int) ([]dto.StudentResponse, error) {
	students, err := s.repo.Search(ctx, strings.TrimSpace(name), limit)
	if err != nil {
		return nil, err
	}

	return dto.NewStudentResponseSlice(students), nil
}

func (s *studentService) ListByGroup(ctx context.Context, groupCode string) ([]dto.StudentResponse, error) {
	students, err := s.repo.ListByGroupCode(ctx, groupCode)
	if err != nil {
		return nil, err
	}

	return dto.NewStudentResponseSlice(students), nil
}
