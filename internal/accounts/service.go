package accounts

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/google"
	"github.com/EmpoweredVote/EV-Accounts/internal/metrics"
	"github.com/EmpoweredVote/EV-Accounts/internal/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

// CodeLength is the number of digits in a confirmation code.
const CodeLength = 6

// TokenVerifier introspects Google id_tokens.
type TokenVerifier interface {
	TokenInfo(ctx context.Context, idToken string) (*google.TokenInfo, error)
}

type Service struct {
	store   Store
	google  TokenVerifier
	issuer  *tokens.Issuer
	metrics *metrics.Metrics
	logger  *zap.Logger

	now     func() time.Time
	newCode func() string
}

func NewService(store Store, gv TokenVerifier, issuer *tokens.Issuer, m *metrics.Metrics, lg *zap.Logger) *Service {
	return &Service{
		store:   store,
		google:  gv,
		issuer:  issuer,
		metrics: m,
		logger:  lg,
		now:     time.Now,
		newCode: randomCode,
	}
}

// randomCode draws CodeLength uniform digits. Not suitable as a secret.
func randomCode() string {
	var b strings.Builder
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

// NormalizeEmail lowercases the domain part, leaving the local part as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

func normalizeName(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

type Registration struct {
	UserID           uint   `json:"user_id"`
	ConfirmationCode string `json:"confirmation_code"`
}

// Register creates an inactive local account and its confirmation code in
// one transaction. The code is returned to the caller; nothing is sent.
func (s *Service) Register(ctx context.Context, email, password string) (*Registration, error) {
	email = NormalizeEmail(email)

	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, invalid(MsgUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &Account{
		Email:              email,
		Password:           string(hash),
		IsActive:           false,
		RegistrationSource: SourceLocal,
	}
	code := s.newCode()

	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return tx.CreateCode(ctx, &ConfirmationCode{AccountID: account.ID, Code: code})
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil, invalid(MsgUserExists)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.Registered()
	s.logger.Info("account registered", zap.Uint("user_id", account.ID))

	return &Registration{UserID: account.ID, ConfirmationCode: code}, nil
}

// ConfirmResult tags the result of the ordered confirmation checks.
type ConfirmResult int

const (
	ConfirmOK ConfirmResult = iota
	ConfirmUnknownUser
	ConfirmCodeNotFound
	ConfirmCodeMismatch
)

func (o ConfirmResult) message() string {
	switch o {
	case ConfirmUnknownUser:
		return MsgUserDoesNotExist
	case ConfirmCodeNotFound:
		return MsgCodeNotFound
	case ConfirmCodeMismatch:
		return MsgCodeInvalid
	}
	return ""
}

// checkConfirmation runs the checks in their fixed order and stops at the
// first failure.
func checkConfirmation(ctx context.Context, st Store, userID uint, code string) (*Account, ConfirmResult, error) {
	account, err := st.AccountByID(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ConfirmUnknownUser, nil
	}
	if err != nil {
		return nil, 0, err
	}

	stored, err := st.CodeForAccount(ctx, account.ID)
	if errors.Is(err, ErrCodeNotFound) {
		return nil, ConfirmCodeNotFound, nil
	}
	if err != nil {
		return nil, 0, err
	}

	if stored.Code != code {
		return nil, ConfirmCodeMismatch, nil
	}
	return account, ConfirmOK, nil
}

type Confirmation struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// Confirm activates the account when code matches, hands out its session
// token and consumes the code, all in one transaction.
func (s *Service) Confirm(ctx context.Context, userID uint, code string) (*Confirmation, error) {
	var key string

	err := s.store.Transaction(ctx, func(tx Store) error {
		account, outcome, err := checkConfirmation(ctx, tx, userID, code)
		if err != nil {
			return err
		}
		if outcome != ConfirmOK {
			return invalid(outcome.message())
		}

		account.IsActive = true
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}

		tok, err := tx.EnsureSessionToken(ctx, account.ID)
		if err != nil {
			return err
		}

		// A concurrent confirmation may have consumed the code after our read.
		deleted, err := tx.DeleteCode(ctx, account.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return invalid(MsgCodeNotFound)
		}

		key = tok.Key
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Confirmed()
	s.logger.Info("account activated", zap.Uint("user_id", userID))

	return &Confirmation{Message: MsgActivated, Key: key}, nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

// authenticate returns the account whose stored hash matches password.
// Unknown emails still pay for one bcrypt comparison.
func (s *Service) authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.store.AccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrAccountNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return nil, nil
	}
	return account, nil
}

type Authorization struct {
	Key string `json:"key"`
}

// Authorize logs a local account in and returns its session token.
func (s *Service) Authorize(ctx context.Context, email, password string) (*Authorization, error) {
	account, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if account == nil {
		s.metrics.Login(metrics.FlowLocal, "bad_credentials")
		return nil, unauthorized(MsgBadCredentials)
	}
	if !account.IsActive {
		s.metrics.Login(metrics.FlowLocal, "inactive")
		return nil, unauthorized(MsgNotActivated)
	}

	tok, err := s.store.EnsureSessionToken(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastLogin(ctx, account.ID, s.now()); err != nil {
		return nil, err
	}

	s.metrics.Login(metrics.FlowLocal, "ok")
	return &Authorization{Key: tok.Key}, nil
}

// GoogleUser is the projected account view returned by Google login.
type GoogleUser struct {
	Email              string     `json:"email"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	RegistrationSource Source     `json:"registration_source"`
	LastLogin          *time.Time `json:"last_login"`
}

type GoogleLogin struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    GoogleUser `json:"user"`
	UserID  uint       `json:"-"`
}

// GoogleLogin trusts Google's tokeninfo answer for idToken, then creates or
// refreshes the account with that email. The account always ends up active
// and Google-sourced.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*GoogleLogin, error) {
	if idToken == "" {
		return nil, invalid(MsgTokenRequired)
	}

	start := time.Now()
	info, err := s.google.TokenInfo(ctx, idToken)
	s.metrics.ObserveTokenInfo(time.Since(start))
	if err != nil {
		s.logger.Warn("google tokeninfo failed", zap.Error(err))
		s.metrics.Login(metrics.FlowGoogle, "invalid_token")
		return nil, &Error{Kind: KindUpstream, Message: MsgInvalidGoogleToken, Err: err}
	}
	if info.Email == "" {
		s.metrics.Login(metrics.FlowGoogle, "no_email")
		return nil, invalid(MsgEmailNotFound)
	}

	email := NormalizeEmail(info.Email)
	first := normalizeName(info.GivenName)
	last := normalizeName(info.FamilyName)
	now := s.now()

	account, err := s.store.AccountByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		account = &Account{
			Email:              email,
			FirstName:          first,
			LastName:           last,
			IsActive:           true,
			RegistrationSource: SourceGoogle,
			LastLogin:          &now,
		}
		err = s.store.CreateAccount(ctx, account)
		if errors.Is(err, ErrEmailTaken) {
			// Lost a race with another first login for this email.
			account, err = s.store.AccountByEmail(ctx, email)
			if err == nil {
				err = s.refreshFromGoogle(ctx, account, first, last, now)
			}
		}
	case err == nil:
		err = s.refreshFromGoogle(ctx, account, first, last, now)
	}
	if err != nil {
		return nil, err
	}

	tok, err := s.store.EnsureSessionToken(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.Login(metrics.FlowGoogle, "ok")

	return &GoogleLogin{
		Message: MsgGoogleLogin,
		Token:   tok.Key,
		UserID:  account.ID,
		User: GoogleUser{
			Email:              account.Email,
			FirstName:          account.FirstName,
			LastName:           account.LastName,
			RegistrationSource: account.RegistrationSource,
			LastLogin:          account.LastLogin,
		},
	}, nil
}

func (s *Service) refreshFromGoogle(ctx context.Context, a *Account, first, last string, now time.Time) error {
	a.FirstName = first
	a.LastName = last
	a.IsActive = true
	a.RegistrationSource = SourceGoogle
	a.LastLogin = &now
	return s.store.SaveAccount(ctx, a)
}

// Account loads the account for the session-token protected endpoints.
func (s *Service) Account(ctx context.Context, id uint) (*Account, error) {
	return s.store.AccountByID(ctx, id)
}

// SeedAccount creates an active local account unless the email is taken.
// It reports whether a row was written.
func (s *Service) SeedAccount(ctx context.Context, a Account, password string) (bool, error) {
	a.Email = NormalizeEmail(a.Email)

	exists, err := s.store.EmailExists(ctx, a.Email)
	if err != nil || exists {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	a.ID = 0
	a.Password = string(hash)
	a.IsActive = true
	a.RegistrationSource = SourceLocal

	if err := s.store.CreateAccount(ctx, &a); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
