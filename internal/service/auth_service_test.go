package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
)

type fakeAuthRepo struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	lastLogin     map[string]time.Time
	lastLoginErr  error
	revoked       []string
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		usersByEmail:  make(map[string]*models.User),
		usersByID:     make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
		lastLogin:     make(map[string]time.Time),
	}
}

func (f *fakeAuthRepo) addUser(user *models.User) {
	f.usersByEmail[user.Email] = user
	f.usersByID[user.ID] = user
}

func (f *fakeAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.usersByID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := f.usersByEmail[email]
	return ok, nil
}

func (f *fakeAuthRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	f.addUser(user)
	return nil
}

func (f *fakeAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	f.lastLogin[id] = ts
	return nil
}

func (f *fakeAuthRepo) UpdatePassword(ctx context.Context, id, hash string, updatedAt time.Time) error {
	if u, ok := f.usersByID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range f.refreshTokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (f *fakeAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	f.refreshTokens[token.Token] = token
	return nil
}

func (f *fakeAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	f.revoked = append(f.revoked, id)
	for _, token := range f.refreshTokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func newTestAuthService(repo *fakeAuthRepo, collegeDomain string) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "campus-notes",
		CollegeEmailDomain: collegeDomain,
	})
}

func TestExtractCollegeDomain(t *testing.T) {
	cases := map[string]string{
		"ada@mit.edu":            "mit.edu",
		"bob@cs.stanford.edu":    "cs.stanford.edu",
		"carol@iitb.ac.in":       "iitb.ac.in",
		"dan@student.edu.au":     "student.edu.au",
		"eve@gmail.com":          "",
		"no-at-sign":             "",
		"frank@Example.College":  "example.college",
		"grace@some.university":  "some.university",
		"heidi@corporation.biz":  "",
		"ivan@university.ac":     "university.ac",
		"judy@trailing-at@":      "",
	}
	for email, want := range cases {
		assert.Equal(t, want, ExtractCollegeDomain(email), email)
	}
}

func TestAuthServiceSignup(t *testing.T) {
	repo := newFakeAuthRepo()
	svc := newTestAuthService(repo, "")

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "Ada@MIT.edu",
		Password: "correct-horse",
		FullName: "Ada Lovelace",
	}, models.LoginRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.Equal(t, "mit.edu", resp.User.CollegeDomain)

	user := repo.usersByEmail["ada@mit.edu"]
	require.NotNil(t, user)
	assert.True(t, user.Verified)
	require.NotNil(t, user.CollegeDomain)
	assert.Equal(t, "mit.edu", *user.CollegeDomain)
}

func TestAuthServiceSignupDomainRestriction(t *testing.T) {
	svc := newTestAuthService(newFakeAuthRepo(), "mit.edu")

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "ada@harvard.edu",
		Password: "correct-horse",
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestAuthServiceSignupDuplicate(t *testing.T) {
	repo := newFakeAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "ada@mit.edu"})
	svc := newTestAuthService(repo, "")

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "ada@mit.edu",
		Password: "correct-horse",
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	domain := "mit.edu"
	repo := newFakeAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "ada@mit.edu", PasswordHash: string(hash), Role: models.RoleStudent, Active: true, CollegeDomain: &domain})
	svc := newTestAuthService(repo, "")

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@mit.edu", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "mit.edu", claims.CollegeDomain)

	// Last login update is best-effort bookkeeping.
	assert.Contains(t, repo.lastLogin, "u1")
}

func TestAuthServiceLoginBadPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newFakeAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "ada@mit.edu", PasswordHash: string(hash), Active: true})
	svc := newTestAuthService(repo, "")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ada@mit.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginSurvivesLastLoginFailure(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newFakeAuthRepo()
	repo.lastLoginErr = sql.ErrConnDone
	repo.addUser(&models.User{ID: "u1", Email: "ada@mit.edu", PasswordHash: string(hash), Active: true})
	svc := newTestAuthService(repo, "")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ada@mit.edu", Password: "correct-horse"})
	require.NoError(t, err)
}

func TestAuthServiceRefreshRotation(t *testing.T) {
	repo := newFakeAuthRepo()
	repo.addUser(&models.User{ID: "u1", Email: "ada@mit.edu", Active: true})
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := newTestAuthService(repo, "")

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, repo.revoked, "rt1")
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	repo := newFakeAuthRepo()
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := newTestAuthService(repo, "")

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}
