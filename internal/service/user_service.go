package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	Notifications(ctx context.Context, userID int64) ([]*models.Notification, error)
	Notify(ctx context.Context, userID int64, message string) error
}

type userService struct {
	u     repository.UserRepository
	n     repository.NotificationRepository
	limit int
}

func NewUserService(u repository.UserRepository, n repository.NotificationRepository, limit int) UserService {
	if limit <= 0 {
		limit = 20
	}
	return &userService{
		u:     u,
		n:     n,
		limit: limit,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting user info: %w", err)
	}

	if !isExist {
		err = errors.New("user not found")
		slog.Info(err.Error())
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}

	return user, nil
}

// Notifications returns the most recent notifications, newest first.
func (s *userService) Notifications(ctx context.Context, userID int64) ([]*models.Notification, error) {
	list, err := s.n.ListRecent(ctx, userID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("error getting notifications: %w", err)
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

func (s *userService) Notify(ctx context.Context, userID int64, message string) error {
	_, err := s.n.Create(ctx, &models.Notification{UserID: userID, Message: message})
	return err
}
