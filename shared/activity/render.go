package activity

import (
	"fmt"
	"html"

	"panelgrid-backend/shared/database/models/audit"

	"github.com/dustin/go-humanize"
)

// systemIdentity stands in when a record has no associated actor, or the
// actor can no longer be resolved
var systemIdentity = ActorIdentity{
	Username: "system",
	Email:    "system@panelgrid.dev",
}

func (s *Store) resolveActor(rec *audit.ActivityLog) ActorIdentity {
	if !rec.HasActor() {
		return systemIdentity
	}

	s.mu.RLock()
	lookup, ok := s.resolvers[*rec.ActorType]
	s.mu.RUnlock()
	if !ok {
		return systemIdentity
	}

	identity, err := lookup(*rec.ActorID)
	if err != nil || identity == nil {
		return systemIdentity
	}
	return *identity
}

func avatarURL(actor ActorIdentity) string {
	if actor.Avatar != "" {
		return actor.Avatar
	}
	return "/assets/avatars/default.png"
}

// RenderSummary produces the HTML fragment shown in the panel's activity
// feed: actor identity, translated event text, source IP and a
// relative/absolute timestamp pair. Pure formatting, no side effects.
func (s *Store) RenderSummary(rec *audit.ActivityLog) string {
	actor := s.resolveActor(rec)
	event := TranslateEvent(rec.Event)

	absolute := rec.Timestamp.Format("Jan 2, 2006 3:04pm")
	relative := humanize.Time(rec.Timestamp)

	return fmt.Sprintf(`
<div style="display: flex; align-items: center;">
    <img width="50px" height="50px" src="%s" style="margin-right: 15px" />

    <div>
        <p>%s — %s</p>
        <p>%s</p>
        <p>%s — <span title="%s">%s</span></p>
    </div>
</div>`,
		avatarURL(actor),
		html.EscapeString(actor.Username), rec.Event,
		html.EscapeString(event),
		rec.IP, absolute, relative,
	)
}
