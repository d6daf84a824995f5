package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	Token        string     `json:"-"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Tier         string     `json:"tier"`
	IsAdmin      bool       `json:"is_admin,omitempty"`
	PasswordHash string     `json:"password_hash"`
	SecurityQ    string     `json:"security_q,omitempty"`
	SecurityA    string     `json:"security_a,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	LoginCount   int        `json:"login_count"`
}

// Repository persists users as a token-keyed JSON file under the data
// directory. All mutations rewrite the file under the lock.
type Repository struct {
	mu     sync.RWMutex
	path   string
	users  map[string]User
	logger *logger_i.Logger
}

func NewRepository(dataDir string) (*Repository, error) {
	r := &Repository{
		path:   filepath.Join(dataDir, "users.json"),
		users:  make(map[string]User),
		logger: logger_i.NewLogger("UserRepository"),
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &r.users); err != nil {
		return nil, fmt.Errorf("corrupt user data file: %w", err)
	}
	for token, u := range r.users {
		u.Token = token
		r.users[token] = u
	}
	return r, nil
}

func generateToken(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Create registers a new user. An already-registered email returns the
// existing user unchanged.
func (r *Repository) Create(username, email, password, tier, securityQ, securityA string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hash = string(h)
	}

	user := User{
		Token:        generateToken("usr"),
		Username:     username,
		Email:        email,
		Tier:         tier,
		PasswordHash: hash,
		SecurityQ:    securityQ,
		SecurityA:    securityA,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[user.Token] = user

	if err := r.persistLocked(); err != nil {
		delete(r.users, user.Token)
		return User{}, err
	}
	r.logger.Info("Created user", "token", user.Token, "tier", tier)
	return user, nil
}

func (r *Repository) FindByToken(token string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[token]
	return u, ok
}

func (r *Repository) FindByEmail(email string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

func (r *Repository) FindByUsernameOrEmail(identifier string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == identifier || u.Email == identifier {
			return u, true
		}
	}
	return User{}, false
}

func (r *Repository) VerifyPassword(email, password string) bool {
	u, ok := r.FindByEmail(email)
	if !ok || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (r *Repository) VerifyRecovery(email, question, answer string) bool {
	u, ok := r.FindByEmail(email)
	return ok && u.SecurityQ == question && u.SecurityA == answer
}

func (r *Repository) SetPassword(email, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for token, u := range r.users {
		if u.Email == email {
			u.PasswordHash = string(hash)
			r.users[token] = u
			return r.persistLocked()
		}
	}
	return ErrUserNotFound
}

func (r *Repository) SetTier(token, tier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[token]
	if !ok {
		return ErrUserNotFound
	}
	u.Tier = tier
	r.users[token] = u
	return r.persistLocked()
}

func (r *Repository) UpdateLoginStats(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[token]
	if !ok {
		return
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	u.LoginCount++
	r.users[token] = u
	if err := r.persistLocked(); err != nil {
		r.logger.Error("Failed persisting login stats", "error", err)
	}
}

// RotateToken issues a fresh token for the account, invalidating the old
// one. Returns the new token.
func (r *Repository) RotateToken(email string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, u := range r.users {
		if u.Email == email {
			newToken := generateToken("usr")
			u.Token = newToken
			delete(r.users, token)
			r.users[newToken] = u
			if err := r.persistLocked(); err != nil {
				return "", err
			}
			return newToken, nil
		}
	}
	return "", ErrUserNotFound
}

func (r *Repository) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
