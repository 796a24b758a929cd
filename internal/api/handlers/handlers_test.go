package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modelmagic/portal/internal/api"
	"github.com/modelmagic/portal/internal/api/handlers"
	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/services"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by handlers)
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

var secret = []byte("handlers-test-secret")

// Mock implementations
type mockProjects struct{ mock.Mock }

func (m *mockProjects) CreateProject(ctx context.Context, in *services.CreateProjectInput) (*models.Project, error) {
	args := m.Called(ctx, in)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjects) GetProject(ctx context.Context, id uuid.UUID, viewer services.Viewer) (*models.Project, error) {
	args := m.Called(ctx, id, viewer)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjects) ListProjects(ctx context.Context, viewer services.Viewer, f *services.ProjectFilters) ([]models.Project, int64, error) {
	args := m.Called(ctx, viewer, f)
	return args.Get(0).([]models.Project), args.Get(1).(int64), args.Error(2)
}

func (m *mockProjects) UpdateBrief(ctx context.Context, id uuid.UUID, viewer services.Viewer, in *services.UpdateBriefInput) (*models.Project, error) {
	args := m.Called(ctx, id, viewer, in)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjects) GetStats(ctx context.Context, viewer services.Viewer) (*services.ProjectStats, error) {
	args := m.Called(ctx, viewer)
	if v := args.Get(0); v != nil {
		return v.(*services.ProjectStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjects) GetTransitionHistory(ctx context.Context, id uuid.UUID) ([]models.ProjectStatusHistory, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.([]models.ProjectStatusHistory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjects) NextStatuses(ctx context.Context, id uuid.UUID) ([]lifecycle.StatusInfo, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.([]lifecycle.StatusInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLifecycle struct{ mock.Mock }

func (m *mockLifecycle) AssignPackage(ctx context.Context, id uuid.UUID, in *services.AssignPackageInput) (*lifecycle.TransitionResult, error) {
	args := m.Called(ctx, id, in)
	if v := args.Get(0); v != nil {
		return v.(*lifecycle.TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) MarkProjectPaid(ctx context.Context, id uuid.UUID, in *services.MarkPaidInput) (*services.MarkPaidResult, error) {
	args := m.Called(ctx, id, in)
	if v := args.Get(0); v != nil {
		return v.(*services.MarkPaidResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLifecycle) UpdateProjectStatus(ctx context.Context, id uuid.UUID, to models.ProjectStatus, actor *uuid.UUID, notes *string) (*lifecycle.TransitionResult, error) {
	args := m.Called(ctx, id, to, actor, notes)
	if v := args.Get(0); v != nil {
		return v.(*lifecycle.TransitionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAssets struct{ mock.Mock }

func (m *mockAssets) RequestUploadURL(ctx context.Context, viewer services.Viewer, in *services.UploadURLInput) (*services.UploadURL, error) {
	args := m.Called(ctx, viewer, in)
	if v := args.Get(0); v != nil {
		return v.(*services.UploadURL), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssets) AddGeneratedAssets(ctx context.Context, id uuid.UUID, files []services.AssetFile) ([]models.Asset, error) {
	args := m.Called(ctx, id, files)
	if v := args.Get(0); v != nil {
		return v.([]models.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssets) ListProjectAssets(ctx context.Context, id uuid.UUID, viewer services.Viewer) (*services.ProjectAssets, error) {
	args := m.Called(ctx, id, viewer)
	if v := args.Get(0); v != nil {
		return v.(*services.ProjectAssets), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssets) DownloadURL(ctx context.Context, id uuid.UUID, viewer services.Viewer) (string, error) {
	args := m.Called(ctx, id, viewer)
	return args.String(0), args.Error(1)
}

func (m *mockAssets) ApproveAsset(ctx context.Context, id uuid.UUID, viewer services.Viewer) (*models.Asset, error) {
	args := m.Called(ctx, id, viewer)
	if v := args.Get(0); v != nil {
		return v.(*models.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssets) RequestRevision(ctx context.Context, id uuid.UUID, viewer services.Viewer, notes string) (*models.Asset, error) {
	args := m.Called(ctx, id, viewer, notes)
	if v := args.Get(0); v != nil {
		return v.(*models.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssets) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, email, password string) (*services.Session, error) {
	args := m.Called(ctx, email, password)
	if v := args.Get(0); v != nil {
		return v.(*services.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	args := m.Called(ctx, email, password, name)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) IssueSession(user *models.User) (*services.Session, error) {
	args := m.Called(user)
	if v := args.Get(0); v != nil {
		return v.(*services.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) SignInExternal(ctx context.Context, email, name string) (*services.Session, error) {
	args := m.Called(ctx, email, name)
	if v := args.Get(0); v != nil {
		return v.(*services.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) SendLoginLink(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuth) SendLoginLinkToUser(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAuth) VerifyLoginLink(ctx context.Context, token string) (*services.Session, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*services.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) Create(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotifications) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, size int) ([]models.Notification, int64, error) {
	args := m.Called(ctx, userID, unreadOnly, page, size)
	return args.Get(0).([]models.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *mockNotifications) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotifications) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotifications) CleanupOld(ctx context.Context, days int) (int64, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(int64), args.Error(1)
}

type mockOIDC struct{ mock.Mock }

func (m *mockOIDC) AuthCodeURL(ls services.LoginState) string {
	return "https://accounts.example.com/auth?state=" + ls.State
}

func (m *mockOIDC) Exchange(ctx context.Context, code string, ls services.LoginState) (*services.Session, error) {
	args := m.Called(ctx, code, ls)
	if v := args.Get(0); v != nil {
		return v.(*services.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	router        http.Handler
	projects      *mockProjects
	lifecycle     *mockLifecycle
	assets        *mockAssets
	auth          *mockAuth
	notifications *mockNotifications
	oidc          *mockOIDC
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		projects:      &mockProjects{},
		lifecycle:     &mockLifecycle{},
		assets:        &mockAssets{},
		auth:          &mockAuth{},
		notifications: &mockNotifications{},
		oidc:          &mockOIDC{},
	}
	f.router = api.NewRouter(api.Dependencies{
		HMACSecret:           secret,
		AllowedOrigin:        "https://portal.example.com",
		Health:               handlers.NewHealthHandler(nil),
		AuthHandler:          handlers.NewAuthHandler(f.auth, f.oidc, "https://portal.example.com"),
		IntakeHandler:        handlers.NewIntakeHandler(f.projects),
		ProjectsHandler:      handlers.NewProjectsHandler(f.projects, f.assets),
		AssetsHandler:        handlers.NewAssetsHandler(f.assets),
		NotificationsHandler: handlers.NewNotificationsHandler(f.notifications),
		AdminHandler:         handlers.NewAdminHandler(f.projects, f.lifecycle, f.assets),
	})
	return f
}

func token(t *testing.T, userID uuid.UUID, role models.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func (f *fixture) do(method, path, body, tok string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	// Distinct addresses keep the per-IP limiter out of the way.
	req.RemoteAddr = uuid.NewString() + ":1234"
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) types.APIResponse {
	t.Helper()
	var resp types.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestIntakeSubmit(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.projects.On("CreateProject", mock.Anything, mock.MatchedBy(func(in *services.CreateProjectInput) bool {
		return in.Email == "ada@example.com" && len(in.ReferenceImages) == 1
	})).Return(&models.Project{ID: id, Status: models.StatusIntakeNew}, nil).Once()

	rr := f.do(http.MethodPost, "/api/v1/intake", `{
		"name": "Ada", "email": "ada@example.com", "product_type": "Handbags",
		"creative_brief": "Soft light",
		"reference_images": [{"file_name": "a.jpg", "file_url": "https://cdn.example.com/a.jpg", "file_key": "temp/a.jpg", "mime_type": "image/jpeg", "file_size": 100}]
	}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), id.String())
	f.projects.AssertExpectations(t)
}

func TestIntakeValidationErrors(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/v1/intake", `{"email": "not-an-email"}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	resp := decodeBody(t, rr)
	require.False(t, resp.Success)
	require.Equal(t, "invalid", resp.Error.Code)
	require.Contains(t, resp.Error.Details, "email")
	require.Contains(t, resp.Error.Details, "product_type")

	rr = f.do(http.MethodPost, "/api/v1/intake", `{"email": "a@b.co", "product_type": "x", "extra": 1}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	f.projects.AssertNotCalled(t, "CreateProject", mock.Anything, mock.Anything)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	client := token(t, uuid.New(), models.RoleClient)

	rr := f.do(http.MethodPost, "/api/v1/admin/projects/"+uuid.NewString()+"/mark-paid", `{}`, client)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(http.MethodGet, "/api/v1/admin/projects", "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAssignPackageInvalidTransitionCarriesDetails(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.lifecycle.On("AssignPackage", mock.Anything, id, mock.MatchedBy(func(in *services.AssignPackageInput) bool {
		return in.PackageType == "20-shots" && in.SendEmail
	})).Return(nil, lifecycle.InvalidTransition(models.StatusPaid, models.StatusAwaitingPayment)).Once()

	rr := f.do(http.MethodPost, "/api/v1/admin/projects/"+id.String()+"/assign-package",
		`{"package_type": "20-shots", "payment_link_url": "https://pay.example.com/x"}`, token(t, uuid.New(), models.RoleAdmin))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	resp := decodeBody(t, rr)
	require.Equal(t, "invalid_transition", resp.Error.Code)
	require.Equal(t, "PAID", resp.Error.Details["from"])
	require.Equal(t, "AWAITING_PAYMENT", resp.Error.Details["to"])
}

func TestAssignPackageRejectsUnknownPackage(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/v1/admin/projects/"+uuid.NewString()+"/assign-package",
		`{"package_type": "99-shots", "payment_link_url": "https://pay.example.com/x"}`, token(t, uuid.New(), models.RoleAdmin))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	f.lifecycle.AssertNotCalled(t, "AssignPackage", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkPaidReturnsBothHops(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	admin := uuid.New()
	paid := &lifecycle.TransitionResult{Project: &models.Project{ID: id, Status: models.StatusPaid}, PreviousStatus: models.StatusAwaitingPayment}
	queued := &lifecycle.TransitionResult{Project: &models.Project{ID: id, Status: models.StatusInQueue}, PreviousStatus: models.StatusPaid}
	f.lifecycle.On("MarkProjectPaid", mock.Anything, id, mock.MatchedBy(func(in *services.MarkPaidInput) bool {
		return in.SendMagicLink && *in.ActorID == admin
	})).Return(&services.MarkPaidResult{Paid: paid, Queued: queued}, nil).Once()

	rr := f.do(http.MethodPost, "/api/v1/admin/projects/"+id.String()+"/mark-paid", "", token(t, admin, models.RoleAdmin))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data map[string]struct {
			Project        struct{ Status string } `json:"project"`
			PreviousStatus string                  `json:"previous_status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "PAID", body.Data["paid"].Project.Status)
	require.Equal(t, "IN_QUEUE", body.Data["queued"].Project.Status)
	f.lifecycle.AssertExpectations(t)
}

func TestUpdateStatusParsesStatus(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	adminTok := token(t, uuid.New(), models.RoleAdmin)

	rr := f.do(http.MethodPatch, "/api/v1/admin/projects/"+id.String()+"/status", `{"status": "SHIPPED"}`, adminTok)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	f.lifecycle.On("UpdateProjectStatus", mock.Anything, id, models.StatusReviewReady, mock.Anything, mock.Anything).
		Return(nil, appErr.New(appErr.CodeConflict, "project status changed concurrently")).Once()
	rr = f.do(http.MethodPatch, "/api/v1/admin/projects/"+id.String()+"/status", `{"status": "review_ready"}`, adminTok)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetProjectNotFound(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	id := uuid.New()
	f.projects.On("GetProject", mock.Anything, id, services.Viewer{UserID: user, Role: models.RoleClient}).
		Return(nil, appErr.New(appErr.CodeNotFound, "project not found")).Once()

	rr := f.do(http.MethodGet, "/api/v1/projects/"+id.String(), "", token(t, user, models.RoleClient))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(http.MethodGet, "/api/v1/projects/not-a-uuid", "", token(t, user, models.RoleClient))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetProjectIncludesStatusInfo(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	id := uuid.New()
	f.projects.On("GetProject", mock.Anything, id, mock.Anything).
		Return(&models.Project{ID: id, UserID: user, Status: models.StatusReviewReady}, nil).Once()

	rr := f.do(http.MethodGet, "/api/v1/projects/"+id.String(), "", token(t, user, models.RoleClient))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"label":"Ready for Review"`)
	require.Contains(t, rr.Body.String(), `"can_request_revision":true`)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.projects.On("GetStats", mock.Anything, mock.Anything).
		Return(nil, appErr.Wrap(context.DeadlineExceeded, appErr.CodeInternal, "count projects failed: password=secret")).Once()

	rr := f.do(http.MethodGet, "/api/v1/projects/stats", "", token(t, user, models.RoleClient))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")
}

func TestMagicLinkAlwaysAccepted(t *testing.T) {
	f := newFixture(t)
	f.auth.On("SendLoginLink", mock.Anything, "ghost@example.com").Return(nil).Once()

	rr := f.do(http.MethodPost, "/api/v1/auth/magic-link", `{"email": "ghost@example.com"}`, "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	f.auth.AssertExpectations(t)
}

func TestVerifyMagicLink(t *testing.T) {
	f := newFixture(t)
	f.auth.On("VerifyLoginLink", mock.Anything, "good").Return(&services.Session{Token: "session", TokenType: "Bearer"}, nil).Once()
	f.auth.On("VerifyLoginLink", mock.Anything, "bad").Return(nil, appErr.New(appErr.CodeUnauthorized, "invalid login link")).Once()

	rr := f.do(http.MethodPost, "/api/v1/auth/magic-link/verify", `{"token": "good"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"access_token":"session"`)

	rr = f.do(http.MethodPost, "/api/v1/auth/magic-link/verify", `{"token": "bad"}`, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOIDCFlow(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/api/v1/auth/oidc/login", "", "")
	require.Equal(t, http.StatusFound, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 3)
	var state string
	for _, c := range cookies {
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		if c.Name == "mm_oidc_state" {
			state = c.Value
		}
	}
	require.Contains(t, rr.Header().Get("Location"), "state="+state)

	callback := func(q string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/oidc/callback?"+q, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		out := httptest.NewRecorder()
		f.router.ServeHTTP(out, req)
		return out
	}

	require.Equal(t, http.StatusUnauthorized, callback("state=forged&code=c").Code)

	f.oidc.On("Exchange", mock.Anything, "c", mock.MatchedBy(func(ls services.LoginState) bool {
		return ls.State == state && ls.Nonce != "" && ls.Verifier != ""
	})).Return(&services.Session{Token: "tok", TokenType: "Bearer"}, nil).Once()

	rr = callback("state=" + url.QueryEscape(state) + "&code=c")
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "https://portal.example.com/auth/callback#access_token=tok&token_type=Bearer", rr.Header().Get("Location"))
	f.oidc.AssertExpectations(t)
}

func TestUploadURLWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.assets.On("RequestUploadURL", mock.Anything, services.Viewer{}, mock.MatchedBy(func(in *services.UploadURLInput) bool {
		return in.ProjectID == nil && in.FileName == "a.png"
	})).Return(&services.UploadURL{UploadURL: "https://signed", FileKey: "temp/a.png"}, nil).Once()

	rr := f.do(http.MethodPost, "/api/v1/assets/upload-url", `{"file_name": "a.png", "mime_type": "image/png", "file_size": 10}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(http.MethodPost, "/api/v1/assets/upload-url",
		`{"project_id": "`+uuid.NewString()+`", "file_name": "a.png", "mime_type": "image/png", "file_size": 10}`, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	f.assets.AssertExpectations(t)
}

func TestRequestRevision(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	id := uuid.New()
	f.assets.On("RequestRevision", mock.Anything, id, mock.Anything, "Warmer tones").
		Return(&models.Asset{ID: id, Status: models.AssetRevisionRequested}, nil).Once()

	rr := f.do(http.MethodPost, "/api/v1/assets/"+id.String()+"/revision", `{"notes": "Warmer tones"}`, token(t, user, models.RoleClient))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "REVISION_REQUESTED")
}

func TestNotificationsList(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.notifications.On("List", mock.Anything, user, true, 2, 5).Return([]models.Notification{{Title: "Paid"}}, int64(6), nil).Once()
	f.notifications.On("UnreadCount", mock.Anything, user).Return(int64(6), nil).Once()

	rr := f.do(http.MethodGet, "/api/v1/notifications?unread=true&page=2&page_size=5", "", token(t, user, models.RoleClient))
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody(t, rr)
	require.EqualValues(t, 6, resp.Meta.Total)
	require.Equal(t, 2, resp.Meta.Page)
}

func TestStatusesPublishesRegistry(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/api/v1/statuses", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			Statuses    []map[string]any `json:"statuses"`
			Transitions []map[string]any `json:"transitions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.Statuses, 7)
	require.Len(t, body.Data.Transitions, 7)
}
