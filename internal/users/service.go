package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrTooManyAttempts    = errors.New("too many OTP attempts")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// Service drives registration, login, OTP login and password reset over
// the user repository and the TTL token stores.
type Service struct {
	repo     *Repository
	sessions TokenStore
	otps     TokenStore
	resets   TokenStore
	logger   *logger_i.Logger
}

func NewService(repo *Repository, sessions, otps, resets TokenStore) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		otps:     otps,
		resets:   resets,
		logger:   logger_i.NewLogger("UserService"),
	}
}

func (s *Service) Register(username, email, password, tier, securityQ, securityA string) (User, error) {
	if tier == "" {
		tier = "free"
	}
	return s.repo.Create(username, email, password, tier, securityQ, securityA)
}

func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	if !s.repo.VerifyPassword(email, password) {
		return "", User{}, ErrInvalidCredentials
	}
	user, _ := s.repo.FindByEmail(email)
	sessionID, err := s.createSession(ctx, user.Token)
	if err != nil {
		return "", User{}, err
	}
	s.repo.UpdateLoginStats(user.Token)
	s.logger.Info("User logged in", "user", user.Token)
	return sessionID, user, nil
}

func (s *Service) createSession(ctx context.Context, userToken string) (string, error) {
	sessionID := "sess_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	if err := s.sessions.Put(ctx, sessionID, userToken, config.SessionTTL); err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *Service) ValidateSession(ctx context.Context, sessionID string) (User, bool) {
	token, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil || !ok {
		return User{}, false
	}
	return s.repo.FindByToken(token)
}

func (s *Service) Logout(ctx context.Context, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Error("Failed deleting session", "error", err)
	}
}

// RequestOTP issues a 6-digit code for email login. The code is returned
// for delivery; it expires after config.OTPTTL.
func (s *Service) RequestOTP(ctx context.Context, email string) (string, error) {
	if _, ok := s.repo.FindByEmail(email); !ok {
		return "", ErrUserNotFound
	}

	otp, err := generateOTP()
	if err != nil {
		return "", err
	}
	if err := s.otps.Put(ctx, otpKey(email), otp, config.OTPTTL); err != nil {
		return "", err
	}
	s.logger.Info("OTP issued", "email", email)
	return otp, nil
}

func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (string, User, error) {
	key := otpKey(email)

	stored, ok, err := s.otps.Get(ctx, key)
	if err != nil {
		return "", User{}, err
	}
	if !ok {
		return "", User{}, ErrInvalidOTP
	}

	attempts, err := s.otps.IncrAttempts(ctx, key)
	if err != nil {
		return "", User{}, err
	}
	if attempts > config.OTPMaxAttempts {
		_ = s.otps.Delete(ctx, key)
		return "", User{}, ErrTooManyAttempts
	}

	if stored != otp {
		return "", User{}, ErrInvalidOTP
	}

	// Single use.
	_ = s.otps.Delete(ctx, key)

	user, _ := s.repo.FindByEmail(email)
	sessionID, err := s.createSession(ctx, user.Token)
	if err != nil {
		return "", User{}, err
	}
	s.repo.UpdateLoginStats(user.Token)
	return sessionID, user, nil
}

// RequestPasswordReset issues a single-use reset token valid for
// config.ResetTokenTTL.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if _, ok := s.repo.FindByEmail(email); !ok {
		return "", ErrUserNotFound
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := s.resets.Put(ctx, resetKey(token), email, config.ResetTokenTTL); err != nil {
		return "", err
	}
	s.logger.Info("Reset token issued", "email", email)
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	key := resetKey(token)
	email, ok, err := s.resets.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}

	if err := s.repo.SetPassword(email, newPassword); err != nil {
		return err
	}
	// Consume the token only after the password actually changed.
	_ = s.resets.Delete(ctx, key)
	s.logger.Info("Password reset completed", "email", email)
	return nil
}

func (s *Service) VerifyRecovery(email, question, answer string) bool {
	return s.repo.VerifyRecovery(email, question, answer)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func otpKey(email string) string   { return "otp:" + email }
func resetKey(token string) string { return "reset:" + token }
