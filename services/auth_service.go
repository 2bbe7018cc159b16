package services

import (
	"context"
	"errors"
	"time"

	"examforge/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
	tokenLifetime   = 24 * time.Hour
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{db: db, jwtSecret: jwtSecret}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		var existing models.User
		if s.db.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error == nil {
			return nil, ErrEmailTaken
		}
		return nil, ErrInternal
	}

	return &user, nil
}

// Login checks credentials and returns a signed JWT. Five consecutive
// failures lock the account for fifteen minutes; a locked account cannot log
// in even with the right password.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", ErrInternal
	}

	now := time.Now().UTC()
	if user.Locked(now) {
		return "", ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		updates := map[string]interface{}{"failed_logins": user.FailedLogins + 1}
		if user.FailedLogins+1 >= maxFailedLogins {
			until := now.Add(lockoutDuration)
			updates["locked_until"] = &until
			updates["failed_logins"] = 0
		}
		s.db.WithContext(ctx).Model(&user).Updates(updates)
		return "", ErrInvalidCredentials
	}

	if user.FailedLogins > 0 || user.LockedUntil != nil {
		s.db.WithContext(ctx).Model(&user).
			Updates(map[string]interface{}{"failed_logins": 0, "locked_until": nil})
	}

	return s.generateToken(&user, now)
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}
	return &user, nil
}

func (s *AuthService) generateToken(user *models.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(tokenLifetime).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", ErrInternal
	}
	return signed, nil
}
