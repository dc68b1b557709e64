// Package audit records mutation events after they commit. Handlers call
// Record explicitly with a structured event; failures never affect the
// request outcome.
package audit

import (
	"encoding/json"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/models"
)

type Event struct {
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]any
}

type Recorder struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewRecorder(db *gorm.DB, log *slog.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Record persists the event attributed to the actor. Call it after the
// guarded mutation has committed.
func (r *Recorder) Record(c *gin.Context, actor *models.User, ev Event) {
	entry := models.AuditLog{
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
	}
	if actor != nil {
		entry.UserID = &actor.ID
		entry.Username = actor.Username
	}
	if c != nil {
		entry.IP = c.ClientIP()
	}
	if ev.Metadata != nil {
		raw, err := json.Marshal(ev.Metadata)
		if err != nil {
			r.log.Warn("audit metadata marshal failed", "action", ev.Action, "err", err)
		} else {
			entry.Metadata = raw
		}
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.log.Warn("audit write failed", "action", ev.Action, "err", err)
	}
}
