package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-risk/internal/http/response"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

// SnapshotReader exposes the published snapshot.
type SnapshotReader interface {
	Current() *snapshot.Snapshot
}

type HealthHandler struct {
	snapshots SnapshotReader
}

func NewHealthHandler(snapshots SnapshotReader) *HealthHandler {
	return &HealthHandler{snapshots: snapshots}
}

// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
// Ready once a snapshot has been published. The model may still be unavailable;
// scoring then runs on the heuristic and using_model reports it.
func (h *HealthHandler) Readyz(c *gin.Context) {
	s := h.snapshots.Current()
	if s == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "not_ready", errNotReady)
		return
	}
	info := s.Model.Info()
	response.RespondOK(c, gin.H{
		"status":          "ready",
		"snapshot_id":     s.ID,
		"seq":             s.Seq,
		"model_available": info.Available,
		"bundle_version":  info.Version,
	})
}
