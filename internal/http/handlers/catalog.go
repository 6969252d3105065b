package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/http/response"
	"github.com/yungbote/neurobridge-risk/internal/risk"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

type CatalogService interface {
	SearchStudents(query string, limit int) ([]aggregates.StudentAggregate, error)
	SearchModules(query string, limit int) ([]aggregates.ModuleAggregate, error)
	Module(name string) (scoring.ModuleDetail, error)
	Overview() (scoring.Overview, error)
	SnapshotInfo() (snapshot.Info, error)
	Strategy(profile string) (risk.Strategy, error)
}

type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

// GET /api/v1/students?q=&limit=
func (h *CatalogHandler) ListStudents(c *gin.Context) {
	students, err := h.catalog.SearchStudents(c.Query("q"), limit(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"students": students})
}

// GET /api/v1/modules?q=&limit=
func (h *CatalogHandler) ListModules(c *gin.Context) {
	modules, err := h.catalog.SearchModules(c.Query("q"), limit(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"modules": modules})
}

// GET /api/v1/modules/:name
func (h *CatalogHandler) GetModule(c *gin.Context) {
	m, err := h.catalog.Module(strings.TrimSpace(c.Param("name")))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"module": m})
}

// GET /api/v1/overview
func (h *CatalogHandler) GetOverview(c *gin.Context) {
	o, err := h.catalog.Overview()
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"overview": o})
}

// GET /api/v1/snapshot
func (h *CatalogHandler) GetSnapshot(c *gin.Context) {
	info, err := h.catalog.SnapshotInfo()
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": info})
}

// GET /api/v1/profiles/:profile/strategy
func (h *CatalogHandler) GetStrategy(c *gin.Context) {
	s, err := h.catalog.Strategy(c.Param("profile"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"strategy": s})
}

// limit parses ?limit=; anything unparsable means the service default.
func limit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}
