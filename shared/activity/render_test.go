package activity

import (
	"strings"
	"testing"
	"time"

	"panelgrid-backend/shared/database/models"
	"panelgrid-backend/shared/database/models/audit"

	"github.com/google/uuid"
)

func TestTranslationKey(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{"auth:reset-password", "activity.auth.reset-password"},
		{"server:file.upload", "activity.server.file.upload"},
		{"server:power.start", "activity.server.power.start"},
		{"api-key:create", "activity.api-key.create"},
	}

	for _, tt := range tests {
		if got := TranslationKey(tt.event); got != tt.want {
			t.Errorf("TranslationKey(%q) = %q, want %q", tt.event, got, tt.want)
		}
	}
}

func TestTranslateEventFallsBackToKey(t *testing.T) {
	if got := TranslateEvent("auth:reset-password"); got != "Reset the account password" {
		t.Errorf("TranslateEvent(auth:reset-password) = %q", got)
	}

	// Unknown events surface as their raw locale key
	if got := TranslateEvent("node:totally-new-event"); got != "activity.node.totally-new-event" {
		t.Errorf("TranslateEvent(unknown) = %q", got)
	}
}

func TestDisabledEventsListing(t *testing.T) {
	store := NewStore(nil, Config{})

	if !store.IsDisabled("server:file.upload") {
		t.Error("server:file.upload should be on the disabled list by default")
	}
	if store.IsDisabled("auth:reset-password") {
		t.Error("auth:reset-password should not be disabled")
	}
}

func TestRenderSummaryWithResolvedActor(t *testing.T) {
	store := NewStore(nil, Config{})

	actorID := uuid.New()
	store.RegisterActor(models.ActorTypeUser, func(id uuid.UUID) (*ActorIdentity, error) {
		if id != actorID {
			t.Fatalf("resolver called with unexpected ID %s", id)
		}
		return &ActorIdentity{
			Username: "admin",
			Email:    "admin@panelgrid.dev",
			Avatar:   "/avatars/admin.png",
		}, nil
	})

	actorType := models.ActorTypeUser
	rec := &audit.ActivityLog{
		Event:     "auth:reset-password",
		IP:        "10.0.0.1",
		ActorType: &actorType,
		ActorID:   &actorID,
		Timestamp: time.Now().UTC().Add(-2 * time.Hour),
	}

	html := store.RenderSummary(rec)

	for _, want := range []string{"admin", "10.0.0.1", "Reset the account password", "/avatars/admin.png", "ago"} {
		if !strings.Contains(html, want) {
			t.Errorf("summary missing %q:\n%s", want, html)
		}
	}
}

func TestRenderSummarySystemFallback(t *testing.T) {
	store := NewStore(nil, Config{})

	rec := &audit.ActivityLog{
		Event:     "server:power.start",
		IP:        "10.0.0.1",
		Timestamp: time.Now().UTC(),
	}

	html := store.RenderSummary(rec)

	if !strings.Contains(html, "system") {
		t.Errorf("actorless summary should fall back to the system identity:\n%s", html)
	}
	if !strings.Contains(html, "/assets/avatars/default.png") {
		t.Errorf("actorless summary should use the default avatar:\n%s", html)
	}
}

func TestRenderSummaryUnresolvableActor(t *testing.T) {
	store := NewStore(nil, Config{})

	// No resolver registered for this actor type
	actorType := "node"
	actorID := uuid.New()
	rec := &audit.ActivityLog{
		Event:     "server:power.stop",
		IP:        "192.168.1.20",
		ActorType: &actorType,
		ActorID:   &actorID,
		Timestamp: time.Now().UTC(),
	}

	html := store.RenderSummary(rec)
	if !strings.Contains(html, "system") {
		t.Errorf("unresolvable actor should render as system:\n%s", html)
	}
}

func TestRenderSummaryEscapesActorIdentity(t *testing.T) {
	store := NewStore(nil, Config{})

	actorID := uuid.New()
	store.RegisterActor(models.ActorTypeUser, func(uuid.UUID) (*ActorIdentity, error) {
		return &ActorIdentity{Username: "<script>alert(1)</script>"}, nil
	})

	actorType := models.ActorTypeUser
	rec := &audit.ActivityLog{
		Event:     "auth:login",
		IP:        "10.0.0.1",
		ActorType: &actorType,
		ActorID:   &actorID,
		Timestamp: time.Now().UTC(),
	}

	html := store.RenderSummary(rec)
	if strings.Contains(html, "<script>") {
		t.Errorf("actor username must be escaped:\n%s", html)
	}
}
