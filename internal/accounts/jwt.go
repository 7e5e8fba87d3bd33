package accounts

import (
	"context"
	"errors"

	"github.com/EmpoweredVote/EV-Accounts/internal/metrics"
	"github.com/EmpoweredVote/EV-Accounts/internal/tokens"
)

func subjectOf(a *Account) tokens.Subject {
	return tokens.Subject{AccountID: a.ID, Email: a.Email, Birthdate: a.Birthdate}
}

// ObtainPair exchanges credentials of an active account for a refresh and
// access token pair.
func (s *Service) ObtainPair(ctx context.Context, email, password string) (*tokens.Pair, error) {
	account, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive {
		s.metrics.Login(metrics.FlowJWT, "rejected")
		return nil, unauthorized(MsgNoActiveAccount)
	}

	pair, err := s.issuer.IssuePair(subjectOf(account))
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastLogin(ctx, account.ID, s.now()); err != nil {
		return nil, err
	}

	s.metrics.Login(metrics.FlowJWT, "ok")
	return &pair, nil
}

type Refreshed struct {
	Access string `json:"access"`
}

// RefreshAccess mints a new access token from a valid refresh token. The
// account is re-read so claims reflect its current email and birthdate.
func (s *Service) RefreshAccess(ctx context.Context, refresh string) (*Refreshed, error) {
	claims, err := s.issuer.ParseAs(refresh, tokens.TypeRefresh)
	if err != nil {
		return nil, unauthorized(MsgTokenInvalid)
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, unauthorized(MsgTokenInvalid)
	}

	account, err := s.store.AccountByID(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, unauthorized(MsgTokenInvalid)
	}
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, unauthorized(MsgNoActiveAccount)
	}

	access, err := s.issuer.IssueAccess(subjectOf(account))
	if err != nil {
		return nil, err
	}
	return &Refreshed{Access: access}, nil
}

// VerifyToken accepts any unexpired token signed by this service.
func (s *Service) VerifyToken(token string) error {
	if _, err := s.issuer.Parse(token); err != nil {
		return unauthorized(MsgTokenInvalid)
	}
	return nil
}
