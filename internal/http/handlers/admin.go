package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-risk/internal/http/response"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

type Reloader interface {
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

type AdminHandler struct {
	reloader Reloader
}

func NewAdminHandler(r Reloader) *AdminHandler {
	return &AdminHandler{reloader: r}
}

// POST /api/v1/admin/reload
// A failed reload leaves the previous snapshot serving and answers 503.
func (h *AdminHandler) Reload(c *gin.Context) {
	s, err := h.reloader.Reload(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": s.Info()})
}
