package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"panelgrid-backend/shared/activity"
	"panelgrid-backend/shared/database/models"
	"panelgrid-backend/shared/database/models/audit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	router *gin.Engine
	store  *activity.Store
	db     *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(&models.User{}, &audit.ActivityLog{}, &audit.ActivityLogSubject{})
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	store := activity.NewStore(db, activity.Config{PruneDays: 30})
	handler := NewActivityHandler(store, db)

	router := gin.New()
	router.POST("/api/activity", handler.RecordActivity)
	router.GET("/api/activity", handler.GetActivities)
	router.GET("/api/activity/events/:event", handler.GetActivitiesByEvent)
	router.GET("/api/activity/actors/:type/:id", handler.GetActivitiesByActor)
	router.GET("/api/activity/records/:id/summary", handler.GetActivitySummary)

	return &testEnv{router: router, store: store, db: db}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestRecordActivityEndpoint(t *testing.T) {
	env := newTestEnv(t)

	actorID := uuid.New()
	w := env.request(t, http.MethodPost, "/api/activity", RecordRequest{
		Event:     "auth:login",
		IP:        "10.0.0.1",
		ActorType: models.ActorTypeUser,
		ActorID:   actorID.String(),
		Properties: map[string]interface{}{
			"using_totp": false,
		},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var count int64
	env.db.Model(&audit.ActivityLog{}).Count(&count)
	if count != 1 {
		t.Errorf("record count = %d, want 1", count)
	}
}

func TestRecordActivityDefaultsToClientIP(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/activity", RecordRequest{
		Event: "auth:login",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var rec audit.ActivityLog
	if err := env.db.First(&rec).Error; err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if rec.IP == "" {
		t.Error("record stored without an IP")
	}
}

func TestRecordActivityRejectsBadIDs(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body RecordRequest
	}{
		{"bad actor ID", RecordRequest{Event: "auth:login", ActorType: "user", ActorID: "nope"}},
		{"actor ID without type", RecordRequest{Event: "auth:login", ActorID: uuid.New().String()}},
		{"bad batch ID", RecordRequest{Event: "auth:login", Batch: "nope"}},
		{"bad subject ID", RecordRequest{Event: "auth:login", Subjects: []SubjectRequest{{Type: "server", ID: "nope"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.request(t, http.MethodPost, "/api/activity", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetActivitiesFiltersDisabledEvents(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.store.Record(activity.RecordInput{Event: "auth:login", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	// Disabled events are still written, only hidden from readers
	if _, err := env.store.Record(activity.RecordInput{Event: "server:file.upload", IP: "10.0.0.1"}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	w := env.request(t, http.MethodGet, "/api/activity", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []audit.ActivityLog `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("listing returned %d records, want 1", len(resp.Data))
	}
	if resp.Data[0].Event != "auth:login" {
		t.Errorf("listing returned %q", resp.Data[0].Event)
	}

	// Both rows remain in storage
	var stored int64
	env.db.Model(&audit.ActivityLog{}).Count(&stored)
	if stored != 2 {
		t.Errorf("stored count = %d, want 2", stored)
	}
}

func TestGetActivitiesByActorEndpoint(t *testing.T) {
	env := newTestEnv(t)

	actorID := uuid.New()
	_, err := env.store.Record(activity.RecordInput{
		Event: "auth:login",
		IP:    "10.0.0.1",
		Actor: &activity.ActorRef{Type: models.ActorTypeUser, ID: actorID},
	})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	w := env.request(t, http.MethodGet, "/api/activity/actors/user/"+actorID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []audit.ActivityLog `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Errorf("actor listing returned %d records, want 1", len(resp.Data))
	}
}

func TestGetActivitySummaryEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.store.Record(activity.RecordInput{Event: "auth:reset-password", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	w := env.request(t, http.MethodGet, "/api/activity/records/"+rec.ID.String()+"/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(resp.HTML, "10.0.0.1") {
		t.Errorf("summary missing the source IP:\n%s", resp.HTML)
	}
}

func TestGetActivitySummaryNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/activity/records/"+uuid.New().String()+"/summary", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
