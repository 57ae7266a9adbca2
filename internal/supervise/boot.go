package supervise

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucentsys/agentspace/internal/models"
)

const (
	bootSource    = "system:boot"
	restartSource = "system:restart"
)

// BootMessage builds the synthetic queue message injected for a root-role
// process at startup, instructing it to spawn a worker.
func BootMessage() models.QueueMessage {
	return models.QueueMessage{
		ID:        uuid.NewString(),
		Source:    bootSource,
		Content:   "Boot: you are the root agent. Spawn a worker process to handle user tasks.",
		Timestamp: time.Now(),
	}
}

// RestartMessage builds the synthetic queue message injected for a worker
// whose context survived a process restart, explaining what happened and
// including the last crash.log entry when one exists.
func RestartMessage(lastCrash *models.CrashRecord) models.QueueMessage {
	content := "Restart: the process restarted and your prior context was recovered. Resume where you left off."
	if lastCrash != nil {
		content += fmt.Sprintf("\n\nLast crash: source=%s message=%q at %s",
			lastCrash.Source, lastCrash.Message, lastCrash.Timestamp.Format(time.RFC3339))
	}
	return models.QueueMessage{
		ID:        uuid.NewString(),
		Source:    restartSource,
		Content:   content,
		Timestamp: time.Now(),
	}
}
