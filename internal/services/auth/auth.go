// Package auth содержит логику бизнес-уровня для регистрации, входа
// и разрешения действующего пользователя по JWT.
package auth

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
)

// Service отвечает за регистрацию, авторизацию и разрешение актора по токену.
type Service struct {
	sessions *session.Manager
	jwtMaker jwt.Maker
}

// New создает новый экземпляр Service.
func New(sessions *session.Manager, jwtMaker jwt.Maker) *Service {
	return &Service{
		sessions: sessions,
		jwtMaker: jwtMaker,
	}
}

// Register создаёт пользователя и сразу открывает сессию (авто-вход).
// Возвращает пользователя и его JWT.
func (s *Service) Register(ctx context.Context, req models.DummyRegister) (*models.User, string, error) {
	user, err := s.sessions.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, "", err
	}
	token, err := s.jwtMaker.GenerateToken(user.Email, user.Role, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login проверяет учётные данные и возвращает пользователя с JWT.
func (s *Service) Login(ctx context.Context, req models.DummyLogin) (*models.User, string, error) {
	user, err := s.sessions.Login(ctx, req.Email, req.Password, req.ExpectedRole)
	if err != nil {
		return nil, "", err
	}
	token, err := s.jwtMaker.GenerateToken(user.Email, user.Role, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout закрывает сессию действующего пользователя.
func (s *Service) Logout(ctx context.Context, actor *models.User) error {
	if actor == nil {
		return errs.ErrUnauthenticated
	}
	return s.sessions.Logout(ctx, actor.ID)
}

// ResolveActor проверяет JWT и возвращает действующего пользователя из его
// сессионной копии. Токен без открытой сессии (после выхода) не принимается.
func (s *Service) ResolveActor(ctx context.Context, tokenStr string) (*models.User, error) {
	const op = "auth.ResolveActor"

	claims, err := s.jwtMaker.ParseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrUnauthenticated)
	}
	user, err := s.sessions.Current(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return nil, errs.ErrUnauthenticated
	}
	return user, nil
}
