package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"membership_site/internal/middleware"
	"membership_site/internal/model"
	"membership_site/internal/repository"
	"membership_site/internal/service"
	"membership_site/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.Username] = &stored
	return nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) SetAdmin(_ context.Context, username string, admin bool) error {
	user, ok := r.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.Admin = admin
	return nil
}

func (r *memUserRepo) ListAll(_ context.Context) ([]model.User, error) {
	var users []model.User
	for _, u := range r.users {
		users = append(users, *u)
	}
	return users, nil
}

type memSessionRepo struct {
	sessions map[string]*model.Session
}

func (r *memSessionRepo) Create(_ context.Context, session *model.Session) error {
	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) Delete(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) Extend(_ context.Context, id string, expiresAt time.Time) error {
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type testApp struct {
	router   *gin.Engine
	users    *memUserRepo
	sessions service.SessionService
	auth     service.AuthService
	signer   *utils.CookieSigner
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := &memUserRepo{users: make(map[string]*model.User)}
	sessionRepo := &memSessionRepo{sessions: make(map[string]*model.Session)}
	sessions := service.NewSessionService(sessionRepo, 10*time.Minute)
	auth := service.NewAuthService(userRepo, sessions, bcrypt.MinCost)
	signer := utils.NewCookieSigner("test-secret")

	router := gin.New()
	router.LoadHTMLGlob("../../web/templates/*.html")
	router.Use(middleware.SessionMiddleware(signer, sessions))

	NewPageHandler().RegisterPageRoutes(router, middleware.RequireAuth())
	NewAuthHandler(auth, sessions, signer).RegisterAuthRoutes(router)
	NewAdminHandler(auth).RegisterAdminRoutes(router, middleware.RequireAdmin())

	return &testApp{router: router, users: userRepo, sessions: sessions, auth: auth, signer: signer}
}

func (a *testApp) get(path string, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) postForm(path string, form url.Values, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// sessionCookie creates a server-side session and returns its signed cookie value
func (a *testApp) sessionCookie(t *testing.T, name string, admin bool) string {
	t.Helper()
	session, err := a.sessions.Create(context.Background(), &service.SessionGrant{
		Authenticated: true,
		Name:          name,
		Admin:         admin,
	})
	require.NoError(t, err)
	value, err := a.signer.Sign(session.ID, session.ExpiresAt)
	require.NoError(t, err)
	return value
}

func (a *testApp) signupAlice(t *testing.T) {
	t.Helper()
	w := a.postForm("/signup", url.Values{
		"name":     {"Alice"},
		"username": {"alice@example.com"},
		"password": {"secret123"},
	}, "")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

func TestHome_Anonymous(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sign up")
}

func TestHome_Authenticated(t *testing.T) {
	app := newTestApp(t)
	cookie := app.sessionCookie(t, "Alice", false)

	w := app.get("/", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
	assert.Contains(t, w.Body.String(), "Members")
}

func TestSignupThenLoginFlow(t *testing.T) {
	app := newTestApp(t)
	app.signupAlice(t)

	w := app.postForm("/login", url.Values{
		"username": {"alice@example.com"},
		"password": {"secret123"},
	}, "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/members", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	var sessionValue string
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookieName {
			sessionValue = ck.Value
			assert.True(t, ck.HttpOnly)
		}
	}
	require.NotEmpty(t, sessionValue)

	members := app.get("/members", sessionValue)
	assert.Equal(t, http.StatusOK, members.Code)
	assert.Contains(t, members.Body.String(), "Alice")
	assert.Contains(t, members.Body.String(), "1.jpg")
}

func TestLogin_InvalidPassword(t *testing.T) {
	app := newTestApp(t)
	app.signupAlice(t)

	w := app.postForm("/login", url.Values{
		"username": {"alice@example.com"},
		"password": {"wrongpass"},
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid password")
}

func TestLogin_UnknownUser(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/login", url.Values{
		"username": {"ghost@example.com"},
		"password": {"secret123"},
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
}

func TestLogin_ValidationErrorRendersLoginForm(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/login", url.Values{
		"username": {"not-an-email"},
		"password": {"secret123"},
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Login")
	assert.Contains(t, w.Body.String(), "valid email")
}

func TestLogin_AlreadyAuthenticatedRedirects(t *testing.T) {
	app := newTestApp(t)
	cookie := app.sessionCookie(t, "Alice", false)

	w := app.postForm("/login", url.Values{
		"username": {"alice@example.com"},
		"password": {"whatever"},
	}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/members", w.Header().Get("Location"))
}

func TestSignup_ValidationError(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/signup", url.Values{
		"name":     {"Alice!"},
		"username": {"alice@example.com"},
		"password": {"secret123"},
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Signup Error")
	assert.Contains(t, w.Body.String(), "alphanumeric")
}

func TestSignup_Duplicate(t *testing.T) {
	app := newTestApp(t)
	app.signupAlice(t)

	w := app.postForm("/signup", url.Values{
		"name":     {"Mallory"},
		"username": {"alice@example.com"},
		"password": {"other456"},
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email already exists")
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	cookie := app.sessionCookie(t, "Alice", false)

	w := app.get("/logout", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	// The server-side session is gone, so the old cookie is useless
	members := app.get("/members", cookie)
	assert.Equal(t, http.StatusFound, members.Code)
	assert.Equal(t, "/login", members.Header().Get("Location"))
}

func TestMembers_RequiresAuth(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/members", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestMembers_TamperedCookieIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	cookie := app.sessionCookie(t, "Alice", false)

	w := app.get("/members", cookie+"garbage")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAdmin_RedirectMatrix(t *testing.T) {
	app := newTestApp(t)

	anonymous := app.get("/admin", "")
	assert.Equal(t, http.StatusFound, anonymous.Code)
	assert.Equal(t, "/login", anonymous.Header().Get("Location"))

	member := app.get("/admin", app.sessionCookie(t, "Alice", false))
	assert.Equal(t, http.StatusFound, member.Code)
	assert.Equal(t, "/members", member.Header().Get("Location"))
}

func TestAdmin_ListUsers(t *testing.T) {
	app := newTestApp(t)
	app.signupAlice(t)
	cookie := app.sessionCookie(t, "Root", true)

	w := app.get("/admin", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")
	assert.Contains(t, w.Body.String(), "Promote")
}

func TestAdmin_PromoteDemote(t *testing.T) {
	app := newTestApp(t)
	app.signupAlice(t)
	cookie := app.sessionCookie(t, "Root", true)

	w := app.get("/admin/promote/alice@example.com", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
	assert.True(t, app.users.users["alice@example.com"].Admin)

	// A fresh login now carries the admin flag
	grant, err := app.auth.Login(context.Background(), nil, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, grant.Admin)

	w = app.get("/admin/demote/alice@example.com", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
	assert.False(t, app.users.users["alice@example.com"].Admin)

	// Demoting again stays a successful no-op
	w = app.get("/admin/demote/alice@example.com", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.False(t, app.users.users["alice@example.com"].Admin)
}

func TestAdmin_PromoteUnknownTarget(t *testing.T) {
	app := newTestApp(t)
	cookie := app.sessionCookie(t, "Root", true)

	w := app.get("/admin/promote/ghost@example.com", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/nosuchpage", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "404")
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	session, err := app.sessions.Create(context.Background(), &service.SessionGrant{Authenticated: true, Name: "Alice"})
	require.NoError(t, err)
	value, err := app.signer.Sign(session.ID, time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, app.sessions.Destroy(context.Background(), session.ID))

	w := app.get("/members", value)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
