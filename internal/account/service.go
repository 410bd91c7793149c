// Package account handles sign-up, sign-in and the account's own data:
// credentials, history and notifications.
package account

import (
	"context"
	"errors"
	"strings"

	"talehub/internal/apperr"
	"talehub/internal/auth"
	"talehub/internal/domain"
	"talehub/internal/notify"
)

const (
	NotificationLimit = 10
	SearchLimit       = 20
)

type Repository interface {
	CreateAccount(ctx context.Context, a domain.NewAccount) (domain.Account, error)
	FindAccountByID(ctx context.Context, id uint) (domain.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	SearchAccounts(ctx context.Context, fragment string, limit int) ([]domain.AccountSummary, error)
	UpdatePasswordHash(ctx context.Context, accountID uint, hash string) error
	UpdateUsername(ctx context.Context, accountID uint, username string) (domain.Account, error)
	UpdateEmail(ctx context.Context, accountID uint, email string) (domain.Account, error)
	StoryHistory(ctx context.Context, accountID uint) ([]domain.StorySummary, error)
	ListNotifications(ctx context.Context, accountID uint, limit int) ([]domain.Notification, error)
	DeleteNotification(ctx context.Context, accountID, notificationID uint) error
}

// Tokens is the part of auth.TokenService the account service uses.
type Tokens interface {
	IssuePair(ctx context.Context, account domain.Account) (domain.TokenPair, error)
	Rotate(ctx context.Context, presented string) (domain.TokenPair, error)
	Revoke(ctx context.Context, accountID uint) error
}

type Service struct {
	repo     Repository
	tokens   Tokens
	notifier notify.Dispatcher
}

func NewService(repo Repository, tokens Tokens, notifier notify.Dispatcher) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, tokens: tokens, notifier: notifier}
}

func (s *Service) notify(a domain.Account, message, sentiment string) {
	s.notifier.Notify(notify.Event{
		RecipientID: a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Message:     message,
		Sentiment:   sentiment,
	})
}

func (s *Service) SignUp(ctx context.Context, username, email, password string) (domain.AccountProfile, error) {
	username = domain.NormalizeHandle(username)
	email = domain.NormalizeHandle(email)
	switch {
	case username == "":
		return domain.AccountProfile{}, apperr.Validation("username", "username is required")
	case email == "":
		return domain.AccountProfile{}, apperr.Validation("email", "email is required")
	case strings.TrimSpace(password) == "":
		return domain.AccountProfile{}, apperr.Validation("password", "password is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.AccountProfile{}, apperr.Wrap(apperr.KindValidation, "password cannot be used", err)
	}
	acc, err := s.repo.CreateAccount(ctx, domain.NewAccount{Username: username, Email: email, PasswordHash: hash})
	if err != nil {
		return domain.AccountProfile{}, err
	}
	s.notify(acc, "New user registered with username "+acc.Username, notify.SentimentPositive)
	return acc.Profile(), nil
}

type Session struct {
	Account domain.AccountProfile
	Tokens  domain.TokenPair
}

// SignIn answers AuthInvalid for both an unknown email and a wrong password.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = domain.NormalizeHandle(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("email", "email and password are required")
	}

	acc, err := s.repo.FindAccountByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return Session{}, apperr.New(apperr.KindAuthInvalid, "invalid email or password")
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(acc.PasswordHash, password) {
		return Session{}, apperr.New(apperr.KindAuthInvalid, "invalid email or password")
	}

	pair, err := s.tokens.IssuePair(ctx, acc)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: acc.Profile(), Tokens: pair}, nil
}

func (s *Service) SignOut(ctx context.Context, accountID uint) error {
	return s.tokens.Revoke(ctx, accountID)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if refreshToken == "" {
		return domain.TokenPair{}, apperr.New(apperr.KindAuthInvalid, "refresh token is required")
	}
	return s.tokens.Rotate(ctx, refreshToken)
}

func (s *Service) ChangePassword(ctx context.Context, accountID uint, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("newPassword", "new password is required")
	}
	acc, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(acc.PasswordHash, oldPassword) {
		return apperr.Validation("oldPassword", "old password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "password cannot be used", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}
	s.notify(acc, "Password has been changed", notify.SentimentNegative)
	return nil
}

func (s *Service) UpdateUsername(ctx context.Context, accountID uint, username string) (domain.AccountProfile, error) {
	username = domain.NormalizeHandle(username)
	if username == "" {
		return domain.AccountProfile{}, apperr.Validation("username", "username is required")
	}
	acc, err := s.repo.UpdateUsername(ctx, accountID, username)
	if err != nil {
		return domain.AccountProfile{}, err
	}
	s.notify(acc, "Username has been changed to "+acc.Username, notify.SentimentNegative)
	return acc.Profile(), nil
}

func (s *Service) UpdateEmail(ctx context.Context, accountID uint, email string) (domain.AccountProfile, error) {
	email = domain.NormalizeHandle(email)
	if email == "" {
		return domain.AccountProfile{}, apperr.Validation("email", "email is required")
	}
	before, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return domain.AccountProfile{}, err
	}
	acc, err := s.repo.UpdateEmail(ctx, accountID, email)
	if err != nil {
		return domain.AccountProfile{}, err
	}
	msg := "Email has been changed from " + before.Email + " to " + acc.Email
	// both addresses hear about it
	s.notify(before, msg, notify.SentimentNegative)
	s.notify(acc, msg, notify.SentimentNegative)
	return acc.Profile(), nil
}

func (s *Service) Current(ctx context.Context, accountID uint) (domain.AccountProfile, error) {
	acc, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return domain.AccountProfile{}, err
	}
	return acc.Profile(), nil
}

func (s *Service) StoryHistory(ctx context.Context, accountID uint) ([]domain.StorySummary, error) {
	return s.repo.StoryHistory(ctx, accountID)
}

func (s *Service) Search(ctx context.Context, fragment string) ([]domain.AccountSummary, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, apperr.Validation("username", "username fragment is required")
	}
	out, err := s.repo.SearchAccounts(ctx, fragment, SearchLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.AccountSummary{}
	}
	return out, nil
}

func (s *Service) Notifications(ctx context.Context, accountID uint) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, accountID, NotificationLimit)
}

func (s *Service) DeleteNotification(ctx context.Context, accountID, notificationID uint) error {
	return s.repo.DeleteNotification(ctx, accountID, notificationID)
}
