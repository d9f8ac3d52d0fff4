package engine

import (
	"context"
	"errors"

	"bobemploi/internal/domain"
	"bobemploi/internal/engine/auth"
	"bobemploi/internal/reducer"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrUnknownEmail  = errors.New("no account for this email")
	ErrAccountExists = errors.New("an account already exists for this email")
)

// Registration holds what is needed to create an account.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Login signs an existing user in. The backend first hands out a salt, then
// checks the salted password hash.
func (e *Engine) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	salted, err := e.API.Authenticate(ctx, domain.AuthRequest{Email: email})
	if err != nil {
		e.Store.Dispatch(reducer.UserAuthenticated{Async: reducer.Async{Status: reducer.Failed, Err: err}})
		return nil, err
	}
	if salted.IsNewUser {
		e.Store.Dispatch(reducer.UserAuthenticated{Async: reducer.Async{Status: reducer.Failed, Err: ErrUnknownEmail}})
		return nil, ErrUnknownEmail
	}
	req := domain.AuthRequest{
		Email:          email,
		HashSalt:       salted.HashSalt,
		HashedPassword: auth.SaltedHash(salted.HashSalt, auth.HashPassword(email, password)),
	}
	return e.authenticate(ctx, req)
}

// Register creates an account and signs it in.
func (e *Engine) Register(ctx context.Context, r Registration) (*domain.AuthResponse, error) {
	if r.Email == "" {
		return nil, ErrEmailRequired
	}
	salted, err := e.API.Authenticate(ctx, domain.AuthRequest{Email: r.Email})
	if err != nil {
		return nil, err
	}
	if !salted.IsNewUser {
		return nil, ErrAccountExists
	}
	return e.authenticate(ctx, domain.AuthRequest{
		Email:          r.Email,
		HashedPassword: auth.HashPassword(r.Email, r.Password),
		FirstName:      r.FirstName,
		LastName:       r.LastName,
	})
}

// Resume signs in again with a token kept from an earlier session.
func (e *Engine) Resume(ctx context.Context, userID, token string) (*domain.AuthResponse, error) {
	return e.authenticate(ctx, domain.AuthRequest{UserID: userID, AuthToken: token})
}

func (e *Engine) authenticate(ctx context.Context, req domain.AuthRequest) (*domain.AuthResponse, error) {
	resp, err := request(ctx, e,
		func(a reducer.Async, v *domain.AuthResponse) reducer.Intent {
			return reducer.UserAuthenticated{Async: a, Response: v}
		},
		func(ctx context.Context) (*domain.AuthResponse, error) { return e.API.Authenticate(ctx, req) })
	if err != nil {
		return nil, err
	}
	e.useToken(resp.AuthToken)
	return resp, nil
}

// ResetPassword sets a new password using a reset token sent by email.
func (e *Engine) ResetPassword(ctx context.Context, email, token, password string) (*domain.AuthResponse, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	req := domain.ResetPasswordRequest{
		Email:          email,
		AuthToken:      token,
		HashedPassword: auth.HashPassword(email, password),
	}
	resp, err := request(ctx, e,
		func(a reducer.Async, v *domain.AuthResponse) reducer.Intent {
			return reducer.PasswordReset{Async: a, Response: v}
		},
		func(ctx context.Context) (*domain.AuthResponse, error) { return e.API.ResetPassword(ctx, req) })
	if err != nil {
		return nil, err
	}
	e.useToken(resp.AuthToken)
	return resp, nil
}

func (e *Engine) useToken(token string) {
	if token == "" {
		return
	}
	if ts, ok := e.API.(tokenSetter); ok {
		ts.SetAuthToken(token)
	}
}

// RequestPasswordReset asks the backend to send a reset token to email.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	_, err := e.API.ResetPassword(ctx, domain.ResetPasswordRequest{Email: email})
	return err
}
