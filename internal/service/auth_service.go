package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

type authAdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type authStudentRepository interface {
	studentEmailLookup
	Create(ctx context.Context, student *models.Student) error
}

type authFacultyRepository interface {
	facultyEmailLookup
	Create(ctx context.Context, faculty *models.Faculty) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService authenticates administrators, students and faculty against
// their own tables and signs up new students and faculty.
type AuthService struct {
	admins    authAdminRepository
	students  authStudentRepository
	faculty   authFacultyRepository
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(admins authAdminRepository, students authStudentRepository, faculty authFacultyRepository, notify notifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = time.Hour
	}
	return &AuthService{admins: admins, students: students, faculty: faculty, notifier: notify, validator: validate, logger: logger, config: config}
}

type account struct {
	info         models.UserInfo
	passwordHash string
}

// Login authenticates an account and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	acct, err := s.lookup(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	token, issuedAt, err := s.generateAccessToken(acct.info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("login succeeded", zap.String("user_id", acct.info.ID), zap.String("role", string(acct.info.Role)))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        acct.info,
	}, nil
}

// Register creates a student account, or a faculty account when the role is
// faculty, queues a welcome message and returns an access token for it.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid registration payload")
	}
	email := normalizeEmail(req.Email)
	if err := ensureEmailFree(ctx, email, s.admins, s.students, s.faculty); err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	var info models.UserInfo
	kind := models.RecipientStudent
	if req.Role == "faculty" {
		faculty := &models.Faculty{
			FacultyCode:  strings.TrimSpace(req.FacultyCode),
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			Mobile:       strings.TrimSpace(req.Mobile),
			PasswordHash: hash,
			Department:   strings.TrimSpace(req.Department),
			Designation:  strings.TrimSpace(req.Designation),
			Active:       true,
		}
		if err := s.faculty.Create(ctx, faculty); err != nil {
			return nil, accountWriteError(err, "failed to create account")
		}
		info = models.UserInfo{ID: faculty.ID, Email: faculty.Email, FullName: faculty.Name, Role: models.RoleFaculty}
		kind = models.RecipientFaculty
	} else {
		student := &models.Student{
			RollNumber:   optionalString(req.RollNumber),
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			Mobile:       strings.TrimSpace(req.Mobile),
			PasswordHash: hash,
		}
		if err := applyStudentDetails(student, req.StudentDetails); err != nil {
			return nil, err
		}
		if err := s.students.Create(ctx, student); err != nil {
			return nil, accountWriteError(err, "failed to create account")
		}
		info = models.UserInfo{ID: student.ID, Email: student.Email, FullName: student.Name, Role: models.RoleStudent}
	}

	s.logger.Info("account registered", zap.String("user_id", info.ID), zap.String("role", string(info.Role)))
	contact := models.Contact{ID: info.ID, Name: info.FullName, Email: info.Email, Kind: kind}
	welcome(ctx, s.notifier, s.logger, contact, "Registration Successful",
		fmt.Sprintf("Welcome, %s! Your account is created.", info.FullName), models.ChannelEmail)
	welcome(ctx, s.notifier, s.logger, contact, "Registration Successful", "Registration successful", models.ChannelInApp)

	token, issuedAt, err := s.generateAccessToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        info,
	}, nil
}

// lookup checks administrators first, then students, then faculty.
func (s *AuthService) lookup(ctx context.Context, email string) (*account, error) {
	admin, err := s.admins.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !admin.Active {
			return nil, sql.ErrNoRows
		}
		return &account{
			info:         models.UserInfo{ID: admin.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role},
			passwordHash: admin.PasswordHash,
		}, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	student, err := s.students.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return &account{
			info:         models.UserInfo{ID: student.ID, Email: student.Email, FullName: student.Name, Role: models.RoleStudent},
			passwordHash: student.PasswordHash,
		}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	faculty, err := s.faculty.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !faculty.Active {
		return nil, sql.ErrNoRows
	}
	return &account{
		info:         models.UserInfo{ID: faculty.ID, Email: faculty.Email, FullName: faculty.Name, Role: models.RoleFaculty},
		passwordHash: faculty.PasswordHash,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for any account table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) generateAccessToken(user models.UserInfo) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
