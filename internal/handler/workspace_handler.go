package handler

import (
	"net/http"
	"time"

	"teamsync/internal/app/archive"
	"teamsync/internal/pkg/auth/jwt"
	"teamsync/internal/pkg/errs"
	"teamsync/internal/pkg/logx"
	"teamsync/internal/pkg/resp"
)

// ArchiveResponse is returned by a successful archive request.
type ArchiveResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleGetWorkspace returns the current snapshot.
func HandleGetWorkspace(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Hub.Store().Snapshot())
	}
}

// HandleGetMe returns the user record behind the identity token.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		user, ok := deps.Hub.Store().User(payload.ID)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		resp.RespondSuccess(w, r, user)
	}
}

// HandleArchiveWorkspace uploads the current snapshot and returns a presigned download link.
func HandleArchiveWorkspace(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archiver == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveDisabled))
			return
		}

		payload := jwt.GetPayloadFromContext(r)
		at := deps.now()

		key, err := deps.Archiver.Archive(r.Context(), deps.Hub.Store().Snapshot(), at)
		if err != nil {
			logx.Error(err, "Snapshot archive upload failed", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveFailed))
			return
		}

		url, err := deps.Archiver.PresignDownload(r.Context(), key, archive.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "Snapshot archive presign failed", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveFailed))
			return
		}

		logx.Info("Workspace snapshot archived", "key", key, "user_id", payload.ID)

		resp.RespondSuccess(w, r, ArchiveResponse{
			Key:       key,
			URL:       url,
			ExpiresAt: at.Add(archive.PresignedURLDuration).UTC(),
		})
	}
}
