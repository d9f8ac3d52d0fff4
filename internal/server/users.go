package server

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"bobemploi/internal/domain"
	"bobemploi/internal/engine/auth"
	"bobemploi/internal/events"
	"bobemploi/internal/repo"
)

const saltTTL = time.Hour

var errWrongPassword = errors.New("wrong email or password")

func (b *backend) registerUsers(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/user/{userId}",
		Summary:     "Get user",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.getUser)
	huma.Register(api, huma.Operation{
		OperationID: "save-user",
		Method:      http.MethodPost,
		Path:        "/user",
		Summary:     "Save user",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.saveUser)
	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/user",
		Summary:     "Delete user",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.deleteUser)
	huma.Register(api, huma.Operation{
		OperationID: "authenticate",
		Method:      http.MethodPost,
		Path:        "/user/authenticate",
		Summary:     "Sign up, sign in or resume a session",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, b.authenticate)
	huma.Register(api, huma.Operation{
		OperationID: "save-likes",
		Method:      http.MethodPost,
		Path:        "/user/likes",
		Summary:     "Save feature likes",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.saveLikes)
	huma.Register(api, huma.Operation{
		OperationID: "refresh-action-plan",
		Method:      http.MethodPost,
		Path:        "/user/refresh-action-plan",
		Summary:     "Save user and regenerate actions",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.refreshActionPlan)
	huma.Register(api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/user/reset-password",
		Summary:     "Request or complete a password reset",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, b.resetPassword)
	huma.Register(api, huma.Operation{
		OperationID: "migrate-to-advisor",
		Method:      http.MethodPost,
		Path:        "/user/{userId}/migrate-to-advisor",
		Summary:     "Switch user to the advisor experience",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.migrateToAdvisor)
	huma.Register(api, huma.Operation{
		OperationID: "record-app-use",
		Method:      http.MethodPost,
		Path:        "/app/use/{userId}",
		Summary:     "Record that the user opened the app",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.recordAppUse)
	huma.Register(api, huma.Operation{
		OperationID: "list-user-events",
		Method:      http.MethodGet,
		Path:        "/user/{userId}/events",
		Summary:     "List recent events of a user",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, b.listEvents)
	huma.Register(api, huma.Operation{
		OperationID:   "create-dashboard-export",
		Method:        http.MethodPost,
		Path:          "/user/{userId}/dashboard-export",
		Summary:       "Freeze the user's projects for an advisor",
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.createDashboardExport)
}

func (b *backend) getUser(ctx context.Context, in *userPathInput) (*userOutput, error) {
	if err := requireUser(ctx, in.UserID); err != nil {
		return nil, b.fail(err)
	}
	rec, err := b.repo.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, b.fail(fmt.Errorf("user %s: %w", in.UserID, err))
	}
	return &userOutput{Body: rec.User}, nil
}

func (b *backend) saveUser(ctx context.Context, in *rawBodyInput) (*userOutput, error) {
	return b.storeUser(ctx, in.RawBody, false)
}

func (b *backend) refreshActionPlan(ctx context.Context, in *rawBodyInput) (*userOutput, error) {
	return b.storeUser(ctx, in.RawBody, true)
}

func (b *backend) storeUser(ctx context.Context, raw []byte, refresh bool) (*userOutput, error) {
	var incoming domain.User
	if err := decodeBody(raw, &incoming); err != nil {
		return nil, b.fail(err)
	}
	if err := requireUser(ctx, incoming.UserID); err != nil {
		return nil, b.fail(err)
	}
	var saved *domain.User
	generated := 0
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := b.repo.GetUserTx(ctx, tx, incoming.UserID)
		if err != nil {
			return fmt.Errorf("user %s: %w", incoming.UserID, err)
		}
		saved, generated = b.prepareUser(rec.User, &incoming)
		evt := events.UserSaved
		if refresh {
			var n int
			saved, n = b.gen.RefreshPlan(saved)
			generated += n
			evt = events.PlanRefreshed
		}
		if err := b.repo.UpdateUser(ctx, tx, saved, b.now()); err != nil {
			return err
		}
		return b.events.Append(ctx, tx, evt, saved.UserID, "user", saved.UserID, saved.UserID,
			events.EventPayload{"projects": len(saved.Projects), "generatedActions": generated})
	})
	if err != nil {
		return nil, b.fail(err)
	}
	b.metrics.AddGeneratedActions(generated)
	return &userOutput{Body: saved}, nil
}

// prepareUser folds the client's user into the stored one. Server-owned
// fields are kept, new projects get an id and complete projects without a
// plan get one.
func (b *backend) prepareUser(stored, incoming *domain.User) (*domain.User, int) {
	if stored == nil {
		stored = &domain.User{}
	}
	out := *incoming
	out.FeaturesEnabled = stored.FeaturesEnabled
	out.RegisteredAt = stored.RegisteredAt
	if out.LastAppUseAt.IsZero() {
		out.LastAppUseAt = stored.LastAppUseAt
	}
	if out.Profile.Email == "" {
		out.Profile.Email = stored.Profile.Email
	}
	if out.Likes == nil {
		out.Likes = stored.Likes
	}
	now := b.now()
	generated := 0
	out.Projects = slices.Clone(incoming.Projects)
	for i := range out.Projects {
		p := &out.Projects[i]
		if p.ProjectID == "" {
			p.ProjectID = uuid.NewString()
		}
		if p.IsIncomplete {
			continue
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.Status == "" {
			p.Status = domain.ProjectCurrent
		}
		if p.Source == "" {
			p.Source = domain.ProjectManuallyCreated
		}
		if p.IsLive() && p.ActionsGeneratedAt.IsZero() {
			var n int
			*p, n = b.gen.RefreshProject(*p, out.Profile)
			generated += n
		}
	}
	return &out, generated
}

func (b *backend) deleteUser(ctx context.Context, in *rawBodyInput) (*userOutput, error) {
	var u domain.User
	if err := decodeBody(in.RawBody, &u); err != nil {
		return nil, b.fail(err)
	}
	if err := requireUser(ctx, u.UserID); err != nil {
		return nil, b.fail(err)
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if err := b.repo.DeleteUser(ctx, tx, u.UserID); err != nil {
			return fmt.Errorf("user %s: %w", u.UserID, err)
		}
		return b.events.Append(ctx, tx, events.UserDeleted, u.UserID, "user", u.UserID, u.UserID, nil)
	})
	if err != nil {
		return nil, b.fail(err)
	}
	return &userOutput{Body: &domain.User{UserID: u.UserID}}, nil
}

func (b *backend) authenticate(ctx context.Context, in *rawBodyInput) (*authOutput, error) {
	var req domain.AuthRequest
	if err := decodeBody(in.RawBody, &req); err != nil {
		return nil, b.fail(err)
	}
	var (
		resp *domain.AuthResponse
		err  error
	)
	switch {
	case req.UserID != "" && req.AuthToken != "":
		resp, err = b.resume(ctx, req)
	case req.Email != "" && req.HashedPassword == "":
		resp, err = b.saltFor(ctx, req.Email)
	case req.Email != "" && req.HashSalt != "":
		resp, err = b.signIn(ctx, req)
	case req.Email != "":
		resp, err = b.signUp(ctx, req)
	default:
		err = newAPIError(http.StatusBadRequest, "email or auth token required")
	}
	if err != nil {
		return nil, b.fail(err)
	}
	return &authOutput{Body: resp}, nil
}

func (b *backend) resume(ctx context.Context, req domain.AuthRequest) (*domain.AuthResponse, error) {
	userID, err := auth.ParseToken(b.settings.Server.JWTSecret, req.AuthToken, b.now())
	if err != nil {
		return nil, err
	}
	if userID != req.UserID {
		return nil, auth.ForbiddenError{UserID: req.UserID}
	}
	rec, err := b.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return b.signedIn(ctx, rec.User, false)
}

func (b *backend) saltFor(ctx context.Context, email string) (*domain.AuthResponse, error) {
	_, err := b.repo.GetUserByEmail(ctx, email)
	isNew := errors.Is(err, repo.ErrNotFound)
	if err != nil && !isNew {
		return nil, err
	}
	return &domain.AuthResponse{
		IsNewUser: isNew,
		HashSalt:  auth.NewSalt(b.settings.Server.JWTSecret, b.now()),
	}, nil
}

func (b *backend) signIn(ctx context.Context, req domain.AuthRequest) (*domain.AuthResponse, error) {
	if err := auth.VerifySalt(b.settings.Server.JWTSecret, req.HashSalt, saltTTL, b.now()); err != nil {
		return nil, err
	}
	rec, err := b.repo.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errWrongPassword
	}
	if err != nil {
		return nil, err
	}
	want := auth.SaltedHash(req.HashSalt, rec.PasswordHash)
	if rec.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(want), []byte(req.HashedPassword)) != 1 {
		return nil, errWrongPassword
	}
	return b.signedIn(ctx, rec.User, false)
}

func (b *backend) signUp(ctx context.Context, req domain.AuthRequest) (*domain.AuthResponse, error) {
	now := b.now()
	u := &domain.User{
		UserID: uuid.NewString(),
		Profile: domain.UserProfile{
			Email:    strings.TrimSpace(req.Email),
			Name:     req.FirstName,
			LastName: req.LastName,
		},
		RegisteredAt: now,
	}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		err := b.repo.InsertUser(ctx, tx, repo.UserRecord{
			ID:           u.UserID,
			Email:        req.Email,
			PasswordHash: req.HashedPassword,
			User:         u,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		return b.events.Append(ctx, tx, events.UserCreated, u.UserID, "user", u.UserID, u.UserID, nil)
	})
	if err != nil {
		return nil, err
	}
	return b.signedIn(ctx, u, true)
}

func (b *backend) signedIn(ctx context.Context, u *domain.User, isNew bool) (*domain.AuthResponse, error) {
	token, err := auth.IssueToken(b.settings.Server.JWTSecret, u.UserID, b.now(), b.settings.Server.TokenTTL)
	if err != nil {
		return nil, err
	}
	if err := b.events.Append(ctx, nil, events.UserAuthenticated, u.UserID, "user", u.UserID, u.UserID, nil); err != nil {
		return nil, err
	}
	return &domain.AuthResponse{AuthenticatedUser: u, IsNewUser: isNew, AuthToken: token}, nil
}

// resetPassword sends a reset token when only an email is given, and sets
// the new password when the token comes back.
func (b *backend) resetPassword(ctx context.Context, in *rawBodyInput) (*authOutput, error) {
	var req domain.ResetPasswordRequest
	if err := decodeBody(in.RawBody, &req); err != nil {
		return nil, b.fail(err)
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, newAPIError(http.StatusBadRequest, "email is required")
	}
	rec, err := b.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, b.fail(fmt.Errorf("email %s: %w", req.Email, err))
	}
	if req.AuthToken == "" {
		if err := b.issueResetToken(ctx, rec); err != nil {
			return nil, b.fail(err)
		}
		return &authOutput{Body: &domain.AuthResponse{}}, nil
	}
	if req.HashedPassword == "" {
		return nil, newAPIError(http.StatusBadRequest, "hashedPassword is required")
	}
	now := b.now()
	err = b.withTx(ctx, func(tx *sql.Tx) error {
		tok, err := b.repo.GetResetToken(ctx, tx, repo.HashResetToken(req.AuthToken))
		if errors.Is(err, repo.ErrNotFound) || (err == nil && (tok.UserID != rec.ID || now.After(tok.ExpiresAt))) {
			return fmt.Errorf("%w: reset token", auth.ErrInvalidToken)
		}
		if err != nil {
			return err
		}
		if err := b.repo.SetPasswordHash(ctx, tx, rec.ID, req.HashedPassword, now); err != nil {
			return err
		}
		if err := b.repo.DeleteResetTokens(ctx, tx, rec.ID); err != nil {
			return err
		}
		return b.events.Append(ctx, tx, events.PasswordReset, rec.ID, "user", rec.ID, rec.ID, nil)
	})
	if err != nil {
		return nil, b.fail(err)
	}
	resp, err := b.signedIn(ctx, rec.User, false)
	if err != nil {
		return nil, b.fail(err)
	}
	return &authOutput{Body: resp}, nil
}

func (b *backend) issueResetToken(ctx context.Context, rec repo.UserRecord) error {
	token := uuid.NewString()
	now := b.now()
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		err := b.repo.InsertResetToken(ctx, tx, repo.ResetToken{
			TokenHash: repo.HashResetToken(token),
			UserID:    rec.ID,
			ExpiresAt: now.Add(b.settings.Server.ResetTokenTTL),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		// Webhooks subscribed to this event deliver the token by email.
		return b.events.Append(ctx, tx, events.PasswordResetAsked, rec.ID, "user", rec.ID, rec.ID,
			events.EventPayload{"email": rec.Email, "resetToken": token})
	})
	if err != nil {
		return err
	}
	b.logger.Info("password reset requested", "user_id", rec.ID)
	b.logger.Debug("password reset token issued", "user_id", rec.ID, "token", token)
	return nil
}

func (b *backend) saveLikes(ctx context.Context, in *rawBodyInput) (*struct{}, error) {
	var req domain.LikesRequest
	if err := decodeBody(in.RawBody, &req); err != nil {
		return nil, b.fail(err)
	}
	if err := requireUser(ctx, req.UserID); err != nil {
		return nil, b.fail(err)
	}
	err := b.updateStored(ctx, req.UserID, events.LikesSaved, func(u *domain.User) {
		likes := make(map[string]int, len(u.Likes)+len(req.Likes))
		for k, v := range u.Likes {
			likes[k] = v
		}
		for k, v := range req.Likes {
			if v == 0 {
				delete(likes, k)
				continue
			}
			likes[k] = v
		}
		u.Likes = likes
	})
	if err != nil {
		return nil, b.fail(err)
	}
	return nil, nil
}

func (b *backend) migrateToAdvisor(ctx context.Context, in *userPathInput) (*userOutput, error) {
	if err := requireUser(ctx, in.UserID); err != nil {
		return nil, b.fail(err)
	}
	var out *domain.User
	generated := 0
	err := b.updateStored(ctx, in.UserID, events.UserMigrated, func(u *domain.User) {
		u.FeaturesEnabled.Advisor = true
		u.FeaturesEnabled.AdvisorEmail = true
		refreshed, n := b.gen.RefreshPlan(u)
		*u = *refreshed
		generated = n
		out = u
	})
	if err != nil {
		return nil, b.fail(err)
	}
	b.metrics.AddGeneratedActions(generated)
	return &userOutput{Body: out}, nil
}

func (b *backend) recordAppUse(ctx context.Context, in *userPathInput) (*userOutput, error) {
	if err := requireUser(ctx, in.UserID); err != nil {
		return nil, b.fail(err)
	}
	now := b.now()
	var out *domain.User
	err := b.updateStored(ctx, in.UserID, events.AppUsed, func(u *domain.User) {
		u.LastAppUseAt = now
		out = u
	})
	if err == nil {
		err = b.repo.InsertAppUse(ctx, nil, in.UserID, now)
	}
	if err != nil {
		return nil, b.fail(err)
	}
	return &userOutput{Body: out}, nil
}

// updateStored applies edit to the stored user and logs evtType, in one
// transaction.
func (b *backend) updateStored(ctx context.Context, userID, evtType string, edit func(u *domain.User)) error {
	return b.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := b.repo.GetUserTx(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		edit(rec.User)
		if err := b.repo.UpdateUser(ctx, tx, rec.User, b.now()); err != nil {
			return err
		}
		return b.events.Append(ctx, tx, evtType, userID, "user", userID, userID, nil)
	})
}

func (b *backend) listEvents(ctx context.Context, in *eventsInput) (*eventsOutput, error) {
	if err := requireUser(ctx, in.UserID); err != nil {
		return nil, b.fail(err)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}
	items, err := b.repo.LatestEvents(ctx, limit+1, in.Cursor, in.UserID, in.Type)
	if err != nil {
		return nil, b.fail(err)
	}
	page := domain.EventsPage{Items: []domain.Event{}}
	if len(items) > limit {
		page.NextCursor = items[limit-1].ID
		items = items[:limit]
	}
	page.Items = append(page.Items, items...)
	return &eventsOutput{Body: page}, nil
}

func (b *backend) createDashboardExport(ctx context.Context, in *userPathInput) (*exportOutput, error) {
	if err := requireUser(ctx, in.UserID); err != nil {
		return nil, b.fail(err)
	}
	rec, err := b.repo.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, b.fail(fmt.Errorf("user %s: %w", in.UserID, err))
	}
	exp := domain.DashboardExport{
		DashboardExportID: uuid.NewString(),
		UserID:            in.UserID,
		Projects:          rec.User.Projects,
		CreatedAt:         b.now(),
	}
	if err := b.repo.InsertDashboardExport(ctx, nil, exp); err != nil {
		return nil, b.fail(err)
	}
	return &exportOutput{Body: exp}, nil
}
