package project

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FillDefaults completes a project created from user input: a blank id
// becomes a random UUID, a blank createdAt becomes now in RFC 3339 and a nil
// requirements map becomes empty. The store itself never fills these in.
func FillDefaults(p Project, now time.Time) Project {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = now.UTC().Format(time.RFC3339)
	}
	if p.Requirements == nil {
		p.Requirements = map[string]any{}
	}
	return p
}
