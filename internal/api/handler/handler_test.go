package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/escalation"
	"grievance/backend/internal/grievance"
	"grievance/backend/internal/livefeed"
	"grievance/backend/internal/models"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/otp"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/storage/storagetest"
	"grievance/backend/internal/users"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "handler-secret"

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Notify(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) code(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].Kind == notify.KindOTP {
			return o.msgs[i].Extra["otp"]
		}
	}
	t.Fatal("no code sent")
	return ""
}

type memEvidence struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memEvidence) Upload(_ context.Context, complaintID uint, fileName, _ string, _ int64, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileName] = data
	return "http://files.local/" + fileName, nil
}

func (m *memEvidence) Remove(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, strings.TrimPrefix(url, "http://files.local/"))
	return nil
}

type env struct {
	router   *gin.Engine
	store    *storage.Service
	box      *outbox
	evidence *memEvidence

	priya, ravi, sunil, root *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		store:    storagetest.NewStorage(t),
		box:      &outbox{},
		evidence: &memEvidence{files: map[string][]byte{}},
	}
	gsvc := grievance.NewService(e.store, e.box, e.evidence)
	usvc := users.NewService(e.store, otp.NewMemoryStore(), e.box, time.Minute)
	t.Cleanup(gsvc.Wait)
	t.Cleanup(usvc.Wait)

	h := handler.NewHandler(gsvc, usvc, escalation.NewSweeper(e.store, gsvc), livefeed.NewHub(), e.store, secret, time.Hour)
	e.router = gin.New()
	h.RegisterRoutes(e.router)

	e.priya = storagetest.SeedUser(t, e.store, "priya", models.RoleStudent, models.GenderFemale, false)
	e.ravi = storagetest.SeedUser(t, e.store, "ravi", models.RoleStaff, models.GenderMale, true)
	e.sunil = storagetest.SeedUser(t, e.store, "sunil", models.RoleStaff, models.GenderMale, true)
	e.root = storagetest.SeedUser(t, e.store, "root", models.RoleAdmin, models.GenderMale, false)
	return e
}

func (e *env) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, time.Hour, u)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, target string, as *models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) submit(t *testing.T, as *models.User, fields map[string]string, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("evidence", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/grievances", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

var grievanceForm = map[string]string{
	"title":       "Ragging in hostel",
	"description": "Seniors in block C",
	"category":    "Hostel",
}

func TestRegisterLoginAndVerify(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{
		"name": "Meera", "email": "meera@example.org", "password": "secret123",
		"gender": "Female", "user_role": "Student", "roll_no": "EE-7",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{
		"name": "Meera", "email": "meera@example.org", "password": "secret123",
		"gender": "Female", "user_role": "Student", "roll_no": "EE-8",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "meera@example.org", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "meera@example.org", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/verify-otp", nil, gin.H{"email": "meera@example.org", "otp": "not-it"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/verify-otp", nil, gin.H{"email": "meera@example.org", "otp": e.box.code(t)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			CanComplain bool `json:"can_complain"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.User.CanComplain)

	claims, err := middleware.ParseToken(secret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "meera@example.org", claims.Email)
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/forgot-password", nil, gin.H{"email": "nobody@example.org"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/forgot-password", nil, gin.H{"email": "priya@example.org"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/reset-password", nil, gin.H{
		"email": "priya@example.org", "otp": e.box.code(t), "newPassword": "brand-new",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRoutesRequireAuthentication(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/grievances/history", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/admin/users", e.priya, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/grievances/assigned", e.priya, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/admin/users", e.root, nil).Code)
}

func TestGrievanceLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)

	w := e.submit(t, e.priya, grievanceForm, "photo.jpg", []byte("jpeg"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Complaint models.Complaint `json:"complaint"`
	}
	decode(t, w, &created)
	id := created.Complaint.ID
	assert.Equal(t, models.StatusPending, created.Complaint.Status)
	assert.Equal(t, models.UrgencyMedium, created.Complaint.Urgency)
	assert.Equal(t, []byte("jpeg"), e.evidence.files["photo.jpg"])

	target := func(action string) string { return "/api/grievances/" + action + "/" + itoa(id) }

	w = e.do(t, http.MethodGet, "/api/grievances/"+itoa(id)+"/available-members", e.root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []models.User
	decode(t, w, &members)
	assert.Len(t, members, 2)

	w = e.do(t, http.MethodPut, target("assign"), e.root, gin.H{"member_id": e.ravi.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPut, target("assign"), e.root, gin.H{"member_id": e.sunil.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, target("resolve"), e.sunil, gin.H{"action_taken": "Warned"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/grievances/assigned", e.ravi, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assigned []models.Complaint
	decode(t, w, &assigned)
	require.Len(t, assigned, 1)
	assert.Equal(t, id, assigned[0].ID)

	w = e.do(t, http.MethodPut, target("resolve"), e.ravi, gin.H{"action_taken": "Warned seniors", "remarks": "done"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/grievances/"+itoa(id), e.priya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details grievance.Details
	decode(t, w, &details)
	assert.Equal(t, models.StatusResolved, details.Complaint.Status)
	assert.Len(t, details.Evidence, 1)
	require.NotNil(t, details.Resolution)
	assert.Equal(t, "Warned seniors", details.Resolution.ActionTaken)

	var actions []string
	for _, l := range details.Logs {
		actions = append(actions, l.ActionTaken)
	}
	assert.Equal(t, []string{models.ActionSubmitted, models.ActionAssigned, models.ActionResolved}, actions)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/grievances/"+itoa(id), e.sunil, nil).Code)
}

func TestSubmitRejectsMissingFieldsAndMaleStudents(t *testing.T) {
	e := newEnv(t)

	w := e.submit(t, e.priya, map[string]string{"title": "only a title"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	arjun := storagetest.SeedUser(t, e.store, "arjun", models.RoleStudent, models.GenderMale, false)
	w = e.submit(t, arjun, grievanceForm, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminComplaintRoutes(t *testing.T) {
	e := newEnv(t)
	past := time.Now().Add(-time.Hour)
	overdue := storagetest.SeedComplaint(t, e.store, e.priya.ID, models.StatusInProgress, &e.ravi.ID, past)
	pending := storagetest.SeedComplaint(t, e.store, e.priya.ID, models.StatusPending, nil, time.Now().Add(time.Hour))

	w := e.do(t, http.MethodGet, "/api/admin/complaints?view=unassigned", e.root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Complaint
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/admin/complaints?view=weird", e.root, nil).Code)

	w = e.do(t, http.MethodPost, "/api/admin/escalations/sweep", e.root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var swept struct {
		Escalated int `json:"escalated"`
	}
	decode(t, w, &swept)
	assert.Equal(t, 1, swept.Escalated)

	got, err := e.store.GetComplaintByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEscalated, got.Status)

	w = e.do(t, http.MethodPost, "/api/admin/complaints/"+itoa(pending.ID)+"/escalate", e.root, gin.H{"reason": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/admin/complaints/"+itoa(pending.ID), e.root, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/admin/complaints/"+itoa(pending.ID), e.root, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodDelete, "/api/admin/complaints/abc", e.root, nil).Code)
}

func TestManualEscalationDefaultsToCaller(t *testing.T) {
	e := newEnv(t)
	c := storagetest.SeedComplaint(t, e.store, e.priya.ID, models.StatusInProgress, &e.ravi.ID, time.Now().Add(time.Hour))

	w := e.do(t, http.MethodPost, "/api/admin/complaints/"+itoa(c.ID)+"/escalate", e.root, gin.H{"reason": "no progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Escalation models.Escalation `json:"escalation"`
	}
	decode(t, w, &resp)
	assert.Equal(t, e.root.ID, resp.Escalation.EscalatedTo)
	assert.Equal(t, "no progress", resp.Escalation.Reason)
}

func TestUpdateUserRole(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPut, "/api/admin/users/"+itoa(e.sunil.ID), e.root, gin.H{"user_role": "Staff", "is_committee_member": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	u, err := e.store.GetUserByID(context.Background(), e.sunil.ID)
	require.NoError(t, err)
	assert.False(t, u.IsCommitteeMember())

	w = e.do(t, http.MethodPut, "/api/admin/users/"+itoa(e.sunil.ID), e.root, gin.H{"user_role": "Staff"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
