package user

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-analogy-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", b.cost()), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a cost lower than the
// configured one.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return c < b.cost()
}

var (
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrDuplicateHandle = userrepo.ErrDuplicateHandle
	ErrWeakPassword    = errors.New("password does not meet policy")
	ErrInvalidHandle   = errors.New("invalid handle")
)

// bcrypt ignores input beyond 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

var strictPassword = struct {
	digit, lower, upper, special *regexp.Regexp
}{
	regexp.MustCompile(`[0-9]`),
	regexp.MustCompile(`[a-z]`),
	regexp.MustCompile(`[A-Z]`),
	regexp.MustCompile(`[@#$%^&+=!]`),
}

// PasswordPolicy validates new passwords. The zero value only requires a
// non-empty password that bcrypt can hash in full.
type PasswordPolicy struct {
	// Strict requires 8+ characters with a digit, a lower-case letter, an
	// upper-case letter and one of @#$%^&+=!.
	Strict bool
}

// PolicyFromEnv enables the strict policy with PASSWORD_STRICT=1.
func PolicyFromEnv() PasswordPolicy {
	return PasswordPolicy{Strict: os.Getenv("PASSWORD_STRICT") == "1"}
}

func (p PasswordPolicy) Check(pw string) error {
	if pw == "" || len(pw) > maxPasswordBytes {
		return ErrWeakPassword
	}
	if !p.Strict {
		return nil
	}
	if len([]rune(pw)) < 8 ||
		!strictPassword.digit.MatchString(pw) ||
		!strictPassword.lower.MatchString(pw) ||
		!strictPassword.upper.MatchString(pw) ||
		!strictPassword.special.MatchString(pw) {
		return ErrWeakPassword
	}
	return nil
}

// UserService orchestrates signup, authentication and password rotation.
type UserService struct {
	repo     userrepo.Repository
	hasher   PasswordHasher
	policy   PasswordPolicy
	validate *validator.Validate
	newID    func() int64
	// compared against when the handle is unknown so both paths cost a bcrypt run
	dummyHash string
}

func NewUserService(r userrepo.Repository, hasher PasswordHasher, policy PasswordPolicy) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	dummy, _, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		dummy = ""
	}
	return &UserService{
		repo:      r,
		hasher:    hasher,
		policy:    policy,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		newID:     utilities.NewSnowflakeID,
		dummyHash: dummy,
	}
}

// NormalizeHandle trims and lower-cases a handle.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func (s *UserService) checkHandle(h string) error {
	if err := s.validate.Var(h, "required,max=64"); err != nil {
		return ErrInvalidHandle
	}
	if strings.IndexFunc(h, unicode.IsSpace) >= 0 {
		return ErrInvalidHandle
	}
	return nil
}

// Signup creates a user with a hashed password.
func (s *UserService) Signup(ctx context.Context, handle, password string) (*entity.User, error) {
	handle = NormalizeHandle(handle)
	if err := s.checkHandle(handle); err != nil {
		return nil, err
	}
	if err := s.policy.Check(password); err != nil {
		return nil, err
	}
	hash, algo, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		ID:           s.newID(),
		Handle:       handle,
		PasswordHash: hash,
		PasswordAlgo: algo,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies handle and password. Unknown handles and wrong
// passwords both return ErrBadCredentials.
func (s *UserService) Authenticate(ctx context.Context, handle, password string) (*entity.User, error) {
	handle = NormalizeHandle(handle)
	if handle == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			// avoid user enumeration through timing
			s.hasher.Verify(s.dummyHash, password)
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		if hash, algo, hErr := s.hasher.Hash(password); hErr == nil {
			if uErr := s.repo.UpdatePassword(ctx, u.ID, hash, algo); uErr == nil {
				u.PasswordHash, u.PasswordAlgo = hash, algo
			}
		}
	}
	return u, nil
}

// ChangePassword rotates the password of user id after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return ErrBadCredentials
		}
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, oldPassword) {
		return ErrBadCredentials
	}
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}
	hash, algo, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, hash, algo)
}
