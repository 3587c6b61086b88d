package fakeapi

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	ProviderLocal  = "LOCAL"
	ProviderGoogle = "GOOGLE"

	PlanFree     = "FREE"
	PlanPro      = "PRO"
	PlanBusiness = "BUSINESS"

	minPasswordLength = 8
)

var validPlans = map[string]bool{
	PlanFree:     true,
	PlanPro:      true,
	PlanBusiness: true,
}

var errUserNotFound = errors.New("user not found")

// User is the backend's view of an account: auth record and profile merged.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string // empty for federated accounts
	Provider     string
	Plan         string
	Credits      int64
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// userResponse is the /api/users/account payload.
type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	Plan         string `json:"plan"`
	Credits      int64  `json:"credits"`
	AuthProvider string `json:"authProvider"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func (u *User) response() userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Plan:         u.Plan,
		Credits:      u.Credits,
		AuthProvider: u.Provider,
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validatePassword applies the backend's only strength rule.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// fullNameFromEmail derives a display name when a federated identity has none.
func fullNameFromEmail(email string) string {
	left, _, _ := strings.Cut(email, "@")
	left = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(left)

	parts := strings.Fields(strings.ToLower(left))
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return "User"
	}
	return strings.Join(parts, " ")
}

// userRepo stores users keyed by id with an email index. Reads return copies.
type userRepo struct {
	users    map[string]*User
	emailIDs map[string]string
	lock     sync.RWMutex
}

func newUserRepo() *userRepo {
	return &userRepo{
		users:    make(map[string]*User),
		emailIDs: make(map[string]string),
	}
}

func (ur *userRepo) Insert(user *User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user.Email = normalizeEmail(user.Email)
	if _, exists := ur.emailIDs[user.Email]; exists {
		return errors.Errorf("[userRepo Insert] email %s already registered", user.Email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	cp := *user
	ur.users[user.ID] = &cp
	ur.emailIDs[user.Email] = user.ID
	return nil
}

func (ur *userRepo) Delete(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errUserNotFound
	}
	delete(ur.emailIDs, user.Email)
	delete(ur.users, id)
	return nil
}

func (ur *userRepo) GetByEmail(email string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIDs[normalizeEmail(email)]
	if !ok {
		return nil, errUserNotFound
	}
	cp := *ur.users[id]
	return &cp, nil
}

func (ur *userRepo) GetByID(id string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	cp := *user
	return &cp, nil
}

// Update applies fn to the stored user and returns the updated copy.
func (ur *userRepo) Update(id string, now time.Time, fn func(*User)) (*User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	fn(user)
	user.UpdatedAt = now
	cp := *user
	return &cp, nil
}
