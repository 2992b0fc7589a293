package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/repository"
	"github.com/karsu-its/ijara-api/pkg/hemis"
)

var (
	// ErrBadCredentials covers every wrong login/password pair, local or
	// upstream, so responses never leak which part was wrong.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrUpstreamUnavailable means HEMIS could not answer in time.
	ErrUpstreamUnavailable = errors.New("student information system unavailable")
	// ErrStudentNotFound indicates the roster has no such student.
	ErrStudentNotFound = errors.New("student not found")
)

const tokenTTL = 24 * time.Hour

// HemisAuthenticator is the slice of the HEMIS client the login flow needs.
type HemisAuthenticator interface {
	Login(ctx context.Context, login, password string) (*hemis.Account, error)
}

// AuthService issues tokens for every principal kind.
type AuthService interface {
	StudentLogin(ctx context.Context, payload dto.StudentLoginRequest) (dto.LoginResponse, error)
	TutorLogin(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error)
	FacultyAdminLogin(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error)
	AdminLogin(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error)
	ChangeTutorPassword(ctx context.Context, tutorID uint, payload dto.ChangePasswordRequest) error
}

type authService struct {
	hemis        HemisAuthenticator
	students     repository.StudentRepository
	tutors       repository.TutorRepository
	facultyAdmin repository.FacultyAdminRepository
	admins       repository.AdminRepository
	permissions  repository.PermissionRepository
	apartments   repository.ApartmentRepository
	validator    *validator.Validate
	secret       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	hemisClient HemisAuthenticator,
	students repository.StudentRepository,
	tutors repository.TutorRepository,
	facultyAdmins repository.FacultyAdminRepository,
	admins repository.AdminRepository,
	permissions repository.PermissionRepository,
	apartments repository.ApartmentRepository,
	validate *validator.Validate,
	secret string,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		hemis:        hemisClient,
		students:     students,
		tutors:       tutors,
		facultyAdmin: facultyAdmins,
		admins:       admins,
		permissions:  permissions,
		apartments:   apartments,
		validator:    validate,
		secret:       secret,
		logger:       logger.With().Str("component", "auth_service").Logger(),
		now:          time.Now,
	}
}

// StudentLogin verifies credentials against HEMIS, then resolves the local
// roster row. A student HEMIS accepts but the roster does not know yet
// gets a success payload flagged NeedsSync but no token; they retry after
// the next roster sync lands.
func (s *authService) StudentLogin(ctx context.Context, payload dto.StudentLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	account, err := s.hemis.Login(ctx, payload.Login, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, hemis.ErrBadCredentials):
			return dto.LoginResponse{}, ErrBadCredentials
		case errors.Is(err, hemis.ErrUnavailable):
			return dto.LoginResponse{}, ErrUpstreamUnavailable
		default:
			return dto.LoginResponse{}, err
		}
	}

	student, err := s.students.GetByIDNumber(ctx, account.StudentIDNumber)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, err
		}

		// Roster lags behind HEMIS. The credentials are good, so answer
		// with the HEMIS profile but hold the token back until the sync
		// job writes the roster row.
		student = studentFromAccount(*account)
		s.logger.Info().Str("student_id_number", student.StudentIDNumber).Msg("student ahead of roster sync, token withheld")

		return dto.LoginResponse{
			Role:      "student",
			NeedsSync: true,
			Profile:   dto.NewStudentResponse(student),
		}, nil
	}

	token, err := s.signToken(student.ID, "student")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{
		Token:          token,
		Role:           "student",
		ExistApartment: s.hasCurrentSubmission(ctx, student),
		Profile:        dto.NewStudentResponse(student),
	}, nil
}

// hasCurrentSubmission reports whether the student already occupies the
// submission slot of their tutor's open round. Lookup failures read as
// "not submitted"; the app only uses the flag to pick a start screen.
func (s *authService) hasCurrentSubmission(ctx context.Context, student models.Student) bool {
	tutor, err := s.tutors.FindByGroupCode(ctx, student.GroupCode)
	if err != nil {
		return false
	}

	permission, err := s.permissions.ActiveByTutor(ctx, tutor.ID)
	if err != nil {
		return false
	}

	_, err = s.apartments.GetByPermissionAndStudent(ctx, permission.ID, student.ID)

	return err == nil
}

func (s *authService) TutorLogin(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	tutor, err := s.tutors.GetByLogin(ctx, payload.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrBadCredentials
		}
		return dto.LoginResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(tutor.PasswordHash), []byte(payload.Password)) != nil {
		return dto.LoginResponse{}, ErrBadCredentials
	}

	token, err := s.signToken(tutor.ID, "tutor")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{Token: token, Role: "tutor", Profile: dto.NewTutorProfile(tutor)}, nil
}

func (s *authService) FacultyAdminLogin(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	admin, err := s.facultyAdmin.GetByLogin(ctx, payload.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrBadCredentials
		}
		return dto.LoginResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(payload.Password)) != nil {
		return dto.LoginResponse{}, ErrBadCredentials
	}

	token, err := s.signToken(admin.ID, "faculty_admin")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{Token: token, Role: "faculty_admin", Profile: admin}, nil
}

func (s *authService) AdminLogin(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	admin, err := s.admins.GetByLogin(ctx, payload.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrBadCredentials
		}
		return dto.LoginResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(payload.Password)) != nil {
		return dto.LoginResponse{}, ErrBadCredentials
	}

	token, err := s.signToken(admin.ID, "admin")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{Token: token, Role: "admin", Profile: admin}, nil
}

func (s *authService) ChangeTutorPassword(ctx context.Context, tutorID uint, payload dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBadCredentials
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(tutor.PasswordHash), []byte(payload.OldPassword)) != nil {
		return ErrBadCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tutor.PasswordHash = string(hash)
	if err := s.tutors.Update(ctx, &tutor); err != nil {
		return err
	}

	s.logger.Info().Uint("tutor_id", tutorID).Msg("tutor password changed")

	return nil
}

func (s *authService) signToken(subject uint, role string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.secret))
}

