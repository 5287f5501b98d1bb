package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ElizavetaP/bankapp/internal/accounts/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
	"github.com/ElizavetaP/bankapp/shared/utils"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type RegisterRequest struct {
	Login     string
	Password  string
	FirstName string
	LastName  string
	Email     string
	BirthDate time.Time
}

type UpdateUserRequest struct {
	FirstName string
	LastName  string
	Email     string
	BirthDate time.Time
}

// UserService manages user registration, profile updates and credentials.
type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if !utils.ValidateLogin(req.Login) {
		return nil, fmt.Errorf("invalid login format")
	}
	if utils.Age(req.BirthDate, time.Now()) < 18 {
		return nil, fmt.Errorf("user must be at least 18 years old")
	}
	exists, err := s.users.ExistsByLogin(ctx, req.Login)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	user := &models.User{
		Login:        req.Login,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		BirthDate:    req.BirthDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("User registered: %s", user.Login)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, login string) (*models.User, error) {
	return s.users.GetByLogin(ctx, login)
}

func (s *UserService) UpdateUser(ctx context.Context, login string, req UpdateUserRequest) (*models.User, error) {
	if utils.Age(req.BirthDate, time.Now()) < 18 {
		return nil, fmt.Errorf("user must be at least 18 years old")
	}
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Email = req.Email
	user.BirthDate = req.BirthDate
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("User updated: %s", login)
	return user, nil
}

// ChangePassword verifies the old password before storing the new hash.
func (s *UserService) ChangePassword(ctx context.Context, login, oldPassword, newPassword string) error {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(oldPassword, user.PasswordHash) {
		return fmt.Errorf("old password is incorrect")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, login, hash); err != nil {
		return err
	}
	log.Printf("Password changed: %s", login)
	return nil
}

// Authenticate checks credentials for login; the handler issues the token.
func (s *UserService) Authenticate(ctx context.Context, login, password string) error {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return ErrInvalidCredentials
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}
