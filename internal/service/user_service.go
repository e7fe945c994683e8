package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

const minPasswordLen = 8

type UserService interface {
	Register(ctx context.Context, username, password, confirm string) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	Get(ctx context.Context, id uint64) (*model.User, error)
	ResolveFirebaseUser(ctx context.Context, firebaseUID, displayName string) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Register(ctx context.Context, username, password, confirm string) (*model.User, error) {
	username = strings.TrimSpace(username)
	verr := &ValidationError{}
	if !usernamePattern.MatchString(username) {
		verr.add("username", "150 characters or fewer; letters, digits and @/./+/-/_ only")
	}
	if len(password) < minPasswordLen {
		verr.add("password1", fmt.Sprintf("must contain at least %d characters", minPasswordLen))
	}
	if password != confirm {
		verr.add("password2", "the two password fields didn't match")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, invalid("username", "a user with that username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Username: username, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("username", "a user with that username already exists")
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return u, nil
}

// ResolveFirebaseUser maps a verified Firebase identity onto a local account.
func (s *userService) ResolveFirebaseUser(ctx context.Context, firebaseUID, displayName string) (*model.User, error) {
	if firebaseUID == "" {
		return nil, ErrUnauthorized
	}
	username := "fb_" + firebaseUID
	if name := strings.TrimSpace(displayName); name != "" && usernamePattern.MatchString(name) {
		if _, err := s.repo.FindByUsername(ctx, name); errors.Is(err, gorm.ErrRecordNotFound) {
			username = name
		}
	}
	if len(username) > 150 {
		username = username[:150]
	}
	return s.repo.FindOrCreateByFirebaseUID(ctx, firebaseUID, username)
}
