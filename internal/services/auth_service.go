package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tabletennis-reviews/internal/models"
	"tabletennis-reviews/internal/utils"
)

// Auth errors surfaced to the login/register handlers.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService handles registration and login
type AuthService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthService{db: db, logger: logger}
}

// Register creates a new user account with a bcrypt password hash. When no
// display name is given a random one is generated.
func (s *AuthService) Register(email string, password string, displayName string) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if displayName == "" {
		displayName, err = utils.GenerateNickname()
		if err != nil {
			return nil, fmt.Errorf("failed to generate display name: %w", err)
		}
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID}).Info("user registered")
	return &user, nil
}

// Login verifies the credentials and returns the user on success.
func (s *AuthService) Login(email string, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}
