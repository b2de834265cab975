package handler

import (
	"time"

	"teamsync/internal/app/archive"
	"teamsync/internal/app/realtime"
	"teamsync/internal/configs"
	"teamsync/internal/pkg/auth/jwt"
)

// AppDeps holds the collaborators shared by every handler. Archiver is nil when S3 archiving
// is not configured.
type AppDeps struct {
	Hub      *realtime.Hub
	Config   *configs.AppConfig
	Issuer   *jwt.Issuer
	Archiver archive.Archiver
	Clock    func() time.Time
}

func (d *AppDeps) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock()
}
