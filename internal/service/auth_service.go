package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meja-pos/internal/cache"
	"github.com/meja-pos/internal/config"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService 员工认证服务
type AuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
}

// NewAuthService 创建认证服务
func NewAuthService(cfg *config.Config, userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		cfg:      cfg,
		userRepo: userRepo,
	}
}

// StaffClaims 员工 JWT 声明
type StaffClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成员工 Token
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)

	claims := StaffClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析员工 Token
func (s *AuthService) ParseJWT(tokenString string) (*StaffClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &StaffClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*StaffClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Login 员工登录；带登录限流，失败累计进窗口
func (s *AuthService) Login(username, password, clientIP string) (*models.User, string, time.Time, error) {
	if blocked, err := s.isRateLimited(clientIP, username); err != nil {
		logger.Warnw("login_rate_limit_check_failed", "username", username, "error", err)
	} else if blocked {
		return nil, "", time.Time{}, ErrLoginRateLimited
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil || !user.CheckPassword(password) {
		s.recordFailedAttempt(clientIP, username)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", time.Time{}, ErrUserDisabled
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	if err := s.userRepo.TouchLastLogin(user.ID, now); err != nil {
		logger.Warnw("login_touch_failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	return user, token, expiresAt, nil
}

// GetByID 获取员工信息
func (s *AuthService) GetByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func loginAttemptKey(clientIP, username string) string {
	return fmt.Sprintf("login_attempts:%s:%s", clientIP, username)
}

// isRateLimited 判断该 IP+账号组合是否已超过窗口内失败上限
func (s *AuthService) isRateLimited(clientIP, username string) (bool, error) {
	if !cache.Enabled() {
		return false, nil
	}
	limit := s.cfg.Security.LoginRateLimit
	if limit.MaxAttempts <= 0 {
		return false, nil
	}
	var attempts int
	found, err := cache.GetJSON(context.Background(), loginAttemptKey(clientIP, username), &attempts)
	if err != nil {
		return false, err
	}
	return found && attempts >= limit.MaxAttempts, nil
}

// recordFailedAttempt 记录一次登录失败
func (s *AuthService) recordFailedAttempt(clientIP, username string) {
	if !cache.Enabled() {
		return
	}
	limit := s.cfg.Security.LoginRateLimit
	key := loginAttemptKey(clientIP, username)
	var attempts int
	if _, err := cache.GetJSON(context.Background(), key, &attempts); err != nil {
		logger.Warnw("login_attempt_read_failed", "username", username, "error", err)
		return
	}
	attempts++
	ttl := time.Duration(limit.WindowSeconds) * time.Second
	if attempts >= limit.MaxAttempts && limit.BlockSeconds > 0 {
		ttl = time.Duration(limit.BlockSeconds) * time.Second
	}
	if err := cache.SetJSON(context.Background(), key, attempts, ttl); err != nil {
		logger.Warnw("login_attempt_write_failed", "username", username, "error", err)
	}
}
