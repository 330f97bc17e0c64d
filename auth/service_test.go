package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-account-service/auth"
	"github.com/jrsteele09/go-account-service/auth/oauth"
	"github.com/jrsteele09/go-account-service/auth/otp"
	"github.com/jrsteele09/go-account-service/auth/sessions"
	"github.com/jrsteele09/go-account-service/cache"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/jrsteele09/go-account-service/users"
	fakeuserrepo "github.com/jrsteele09/go-account-service/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail     = "jane@example.com"
	testPassword  = "Str0ng!Pass"
	testFirstName = "Jane"
	testLastName  = "Doe"
	testUserAgent = "test-agent/1.0"
	testIPAddress = "203.0.113.7"

	testSessionTTL    = time.Hour
	testOTPTTL        = 10 * time.Minute
	testResetTokenTTL = 15 * time.Minute
)

// fakeMailer records the last forgot-password email instead of sending it.
type fakeMailer struct {
	to    string
	code  string
	calls int
}

func (m *fakeMailer) SendForgotPasswordEmail(_ context.Context, to, code string) error {
	m.to = to
	m.code = code
	m.calls++
	return nil
}

// serviceFixture holds all test dependencies. Mutating now moves the clock of
// the cache, the session store and the token authority together.
type serviceFixture struct {
	ctx      context.Context
	now      time.Time
	cache    *cache.MemoryStore
	userRepo *fakeuserrepo.FakeUserRepo
	mailer   *fakeMailer
	service  *auth.Service
}

func newServiceFixture(t *testing.T, options ...auth.ServiceOption) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		ctx: context.Background(),
		now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
	nowFunc := func() time.Time { return f.now }

	f.cache = cache.NewMemoryStore(cache.WithNowFunc(nowFunc))
	f.userRepo = fakeuserrepo.NewFakeUserRepo()
	f.mailer = &fakeMailer{}

	authority, err := token.NewAuthority("access-secret", "refresh-secret", token.WithNowFunc(nowFunc))
	require.NoError(t, err)

	sessionStore := sessions.NewStore(f.cache, testSessionTTL, sessions.WithNowFunc(nowFunc))
	resetStore := otp.NewStore(f.cache, testOTPTTL, testResetTokenTTL)

	opts := append([]auth.ServiceOption{
		auth.WithNowTime(nowFunc),
		auth.WithMailer(f.mailer),
	}, options...)

	f.service, err = auth.NewService(auth.Repos{
		Users:    f.userRepo,
		Sessions: sessionStore,
		Reset:    resetStore,
	}, authority, opts...)
	require.NoError(t, err)

	return f
}

func (f *serviceFixture) client() auth.ClientInfo {
	return auth.ClientInfo{IPAddress: testIPAddress, UserAgent: testUserAgent}
}

func (f *serviceFixture) signUp(t *testing.T) (*users.User, *auth.TokenPair) {
	t.Helper()
	user, pair, err := f.service.SignUp(f.ctx, testFirstName, testLastName, testEmail, testPassword, f.client())
	require.NoError(t, err)
	return user, pair
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	authority, err := token.NewAuthority("a-secret", "r-secret")
	require.NoError(t, err)

	_, err = auth.NewService(auth.Repos{}, authority)
	require.Error(t, err)

	mem := cache.NewMemoryStore()
	repos := auth.Repos{
		Users:    fakeuserrepo.NewFakeUserRepo(),
		Sessions: sessions.NewStore(mem, testSessionTTL),
		Reset:    otp.NewStore(mem, testOTPTTL, testResetTokenTTL),
	}
	_, err = auth.NewService(repos, nil)
	require.Error(t, err)

	_, err = auth.NewService(repos, authority)
	require.NoError(t, err)
}

func TestSignUpCreatesUserAndSession(t *testing.T) {
	f := newServiceFixture(t)

	user, pair := f.signUp(t)
	require.NotEmpty(t, user.ID)
	require.Equal(t, testEmail, user.Email)
	require.Equal(t, users.ProviderEmail, user.AuthProvider)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, pair.SessionID)

	exists, err := f.userRepo.ExistsByEmail(f.ctx, testEmail)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)

	_, _, err := f.service.SignUp(f.ctx, testFirstName, testLastName, testEmail, testPassword, f.client())
	require.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
}

func TestSignUpInvalidEmail(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.SignUp(f.ctx, testFirstName, testLastName, "not-an-email", testPassword, f.client())
	require.ErrorIs(t, err, auth.ErrInvalidEmail)
}

func TestSignUpWeakPassword(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.SignUp(f.ctx, testFirstName, testLastName, testEmail, "short", f.client())
	require.ErrorIs(t, err, auth.ErrInvalidPassword)

	var passwordErr *auth.InvalidPasswordError
	require.ErrorAs(t, err, &passwordErr)
	require.NotEmpty(t, passwordErr.Rules)
}

func TestSignInSuccess(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)

	user, pair, err := f.service.SignIn(f.ctx, testEmail, testPassword, f.client())
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)
	require.NotEmpty(t, pair.SessionID)
	require.Zero(t, user.LoginAttempts)
}

func TestSignInUnknownEmail(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.SignIn(f.ctx, "nobody@example.com", testPassword, f.client())
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSignInWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)

	_, _, err := f.service.SignIn(f.ctx, testEmail, "Wr0ng!Pass1", f.client())
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSignInInactiveAccount(t *testing.T) {
	f := newServiceFixture(t)
	user, _ := f.signUp(t)

	user.Status = users.StatusSuspended
	require.NoError(t, f.userRepo.Save(f.ctx, user))

	_, _, err := f.service.SignIn(f.ctx, testEmail, testPassword, f.client())
	require.ErrorIs(t, err, auth.ErrAccountInactive)

	var inactiveErr *auth.AccountInactiveError
	require.ErrorAs(t, err, &inactiveErr)
	require.Equal(t, users.StatusSuspended, inactiveErr.Status)
}

func TestLockoutAtThreshold(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)

	for i := 0; i < 4; i++ {
		_, _, err := f.service.SignIn(f.ctx, testEmail, "Wr0ng!Pass1", f.client())
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	// Fifth failure trips the lock and says so.
	_, _, err := f.service.SignIn(f.ctx, testEmail, "Wr0ng!Pass1", f.client())
	require.ErrorIs(t, err, auth.ErrAccountLocked)

	var lockedErr *auth.AccountLockedError
	require.ErrorAs(t, err, &lockedErr)
	require.False(t, lockedErr.Until.IsZero())

	// Correct password during the lock window is still refused.
	_, _, err = f.service.SignIn(f.ctx, testEmail, testPassword, f.client())
	require.ErrorIs(t, err, auth.ErrAccountLocked)
}

func TestLockoutCounterResetsOnSuccess(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)

	for i := 0; i < 2; i++ {
		_, _, err := f.service.SignIn(f.ctx, testEmail, "Wr0ng!Pass1", f.client())
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	user, _, err := f.service.SignIn(f.ctx, testEmail, testPassword, f.client())
	require.NoError(t, err)
	require.Zero(t, user.LoginAttempts)
	require.Nil(t, user.LockedUntil)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	rotated, err := f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, rotated.SessionID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The rotated token keeps working.
	again, err := f.service.Refresh(f.ctx, rotated.RefreshToken, f.client())
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, again.SessionID)
}

func TestRefreshReplayDestroysSession(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	rotated, err := f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.NoError(t, err)

	// Replaying the pre-rotation token is reuse detection.
	_, err = f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrRefreshTokenMismatch)

	// The session was destroyed, so even the current token is dead.
	_, err = f.service.Refresh(f.ctx, rotated.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestRefreshGarbageToken(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Refresh(f.ctx, "not-a-token", f.client())
	require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshAfterSessionExpiry(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	f.now = f.now.Add(testSessionTTL + time.Minute)

	_, err := f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestRefreshUserAgentMismatch(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	otherClient := auth.ClientInfo{IPAddress: testIPAddress, UserAgent: "different-agent/2.0"}
	_, err := f.service.Refresh(f.ctx, pair.RefreshToken, otherClient)
	require.ErrorIs(t, err, auth.ErrRefreshTokenMismatch)

	// Fingerprint mismatch is terminal for the session too.
	_, err = f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestRefreshIPMismatchIgnoredByDefault(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	otherClient := auth.ClientInfo{IPAddress: "198.51.100.9", UserAgent: testUserAgent}
	_, err := f.service.Refresh(f.ctx, pair.RefreshToken, otherClient)
	require.NoError(t, err)
}

func TestRefreshIPMismatchWithIPBinding(t *testing.T) {
	f := newServiceFixture(t, auth.WithIPBinding(true))
	_, pair := f.signUp(t)

	otherClient := auth.ClientInfo{IPAddress: "198.51.100.9", UserAgent: testUserAgent}
	_, err := f.service.Refresh(f.ctx, pair.RefreshToken, otherClient)
	require.ErrorIs(t, err, auth.ErrRefreshTokenMismatch)
}

func TestRefreshInactiveUserDestroysSession(t *testing.T) {
	f := newServiceFixture(t)
	user, pair := f.signUp(t)

	user.Status = users.StatusSuspended
	require.NoError(t, f.userRepo.Save(f.ctx, user))

	_, err := f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrAccountInactive)

	_, err = f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestRefreshDeletedUserDestroysSession(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	require.NoError(t, f.userRepo.Delete(f.ctx, testEmail))

	_, err := f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestCurrentUser(t *testing.T) {
	f := newServiceFixture(t)
	user, pair := f.signUp(t)

	resolved, err := f.service.CurrentUser(f.ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}

func TestCurrentUserGarbageToken(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CurrentUser(f.ctx, "not-a-token")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestSignOutBlacklistsAndInvalidates(t *testing.T) {
	f := newServiceFixture(t)
	_, pair := f.signUp(t)

	require.NoError(t, f.service.SignOut(f.ctx, pair.AccessToken))

	// The access token is blacklisted for its remaining lifetime.
	_, err := f.service.CurrentUser(f.ctx, pair.AccessToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	// The session is gone, so the refresh token is dead too.
	_, err = f.service.Refresh(f.ctx, pair.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestSignOutEverywhere(t *testing.T) {
	f := newServiceFixture(t)
	user, first := f.signUp(t)

	_, second, err := f.service.SignIn(f.ctx, testEmail, testPassword, f.client())
	require.NoError(t, err)

	require.NoError(t, f.service.SignOutEverywhere(f.ctx, user.ID))

	_, err = f.service.Refresh(f.ctx, first.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = f.service.Refresh(f.ctx, second.RefreshToken, f.client())
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)

	require.NoError(t, f.service.RequestPasswordReset(f.ctx, testEmail))
	require.Equal(t, 1, f.mailer.calls)
	require.Equal(t, testEmail, f.mailer.to)
	require.Regexp(t, otp.CodePattern, f.mailer.code)

	resetToken, err := f.service.VerifyPasswordReset(f.ctx, testEmail, f.mailer.code)
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	const newPassword = "NewStr0ng!1"
	require.NoError(t, f.service.ConfirmPasswordReset(f.ctx, resetToken, newPassword))

	// Old password no longer authenticates, the new one does.
	_, _, err = f.service.SignIn(f.ctx, testEmail, testPassword, f.client())
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, err = f.service.SignIn(f.ctx, testEmail, newPassword, f.client())
	require.NoError(t, err)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(f.ctx, "nobody@example.com"))
	require.Zero(t, f.mailer.calls)
}

func TestPasswordResetInactiveAccount(t *testing.T) {
	f := newServiceFixture(t)
	user, _ := f.signUp(t)

	user.Status = users.StatusSuspended
	require.NoError(t, f.userRepo.Save(f.ctx, user))

	err := f.service.RequestPasswordReset(f.ctx, testEmail)
	require.ErrorIs(t, err, auth.ErrAccountInactive)
}

func TestVerifyPasswordResetWrongCode(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)
	require.NoError(t, f.service.RequestPasswordReset(f.ctx, testEmail))

	wrongCode := "000000"
	if wrongCode == f.mailer.code {
		wrongCode = "000001"
	}
	_, err := f.service.VerifyPasswordReset(f.ctx, testEmail, wrongCode)
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
}

func TestVerifyPasswordResetMalformedCode(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.VerifyPasswordReset(f.ctx, testEmail, "12345")
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
	_, err = f.service.VerifyPasswordReset(f.ctx, testEmail, "12345a")
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
}

func TestOTPSingleUse(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)
	require.NoError(t, f.service.RequestPasswordReset(f.ctx, testEmail))

	_, err := f.service.VerifyPasswordReset(f.ctx, testEmail, f.mailer.code)
	require.NoError(t, err)

	_, err = f.service.VerifyPasswordReset(f.ctx, testEmail, f.mailer.code)
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
}

func TestOTPExpires(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)
	require.NoError(t, f.service.RequestPasswordReset(f.ctx, testEmail))

	f.now = f.now.Add(testOTPTTL + time.Second)

	_, err := f.service.VerifyPasswordReset(f.ctx, testEmail, f.mailer.code)
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
}

func TestResetTokenSingleUse(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)
	require.NoError(t, f.service.RequestPasswordReset(f.ctx, testEmail))

	resetToken, err := f.service.VerifyPasswordReset(f.ctx, testEmail, f.mailer.code)
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmPasswordReset(f.ctx, resetToken, "NewStr0ng!1"))
	err = f.service.ConfirmPasswordReset(f.ctx, resetToken, "An0ther!Pass")
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
}

func TestConfirmPasswordResetWeakPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.signUp(t)
	require.NoError(t, f.service.RequestPasswordReset(f.ctx, testEmail))

	resetToken, err := f.service.VerifyPasswordReset(f.ctx, testEmail, f.mailer.code)
	require.NoError(t, err)

	err = f.service.ConfirmPasswordReset(f.ctx, resetToken, "weak")
	require.ErrorIs(t, err, auth.ErrInvalidPassword)
}

func TestConfirmPasswordResetUnknownToken(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.ConfirmPasswordReset(f.ctx, "unknown-token", "NewStr0ng!1")
	require.ErrorIs(t, err, auth.ErrInvalidOtp)
}

func TestSignInWithOAuthCreatesUser(t *testing.T) {
	f := newServiceFixture(t)

	identity := &oauth.Identity{
		Subject:       "google-sub-1",
		Email:         "jane.oauth@example.com",
		EmailVerified: true,
		FirstName:     testFirstName,
		LastName:      testLastName,
	}
	user, pair, err := f.service.SignInWithOAuth(f.ctx, identity, f.client())
	require.NoError(t, err)
	require.Equal(t, users.ProviderGoogle, user.AuthProvider)
	require.Equal(t, "google-sub-1", user.GoogleID)
	require.Empty(t, user.PasswordHash)
	require.NotEmpty(t, pair.SessionID)

	exists, err := f.userRepo.ExistsByEmail(f.ctx, "jane.oauth@example.com")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestSignInWithOAuthLinksExistingUser(t *testing.T) {
	f := newServiceFixture(t)
	existing, _ := f.signUp(t)

	identity := &oauth.Identity{
		Subject:       "google-sub-2",
		Email:         testEmail,
		EmailVerified: true,
		FirstName:     testFirstName,
		LastName:      testLastName,
	}
	user, _, err := f.service.SignInWithOAuth(f.ctx, identity, f.client())
	require.NoError(t, err)
	require.Equal(t, existing.ID, user.ID)
	require.Equal(t, "google-sub-2", user.GoogleID)
	require.Equal(t, users.ProviderEmail, user.AuthProvider)
}

func TestSignInWithOAuthUnverifiedEmail(t *testing.T) {
	f := newServiceFixture(t)

	identity := &oauth.Identity{
		Subject: "google-sub-3",
		Email:   testEmail,
	}
	_, _, err := f.service.SignInWithOAuth(f.ctx, identity, f.client())
	require.ErrorIs(t, err, auth.ErrInvalidEmail)
}
