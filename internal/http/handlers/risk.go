package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/http/response"
	"github.com/yungbote/neurobridge-risk/internal/risk"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
)

var errNotReady = errors.New("no snapshot loaded yet")

const maxSimulateRecords = 500

type RiskService interface {
	Score(ctx context.Context, studentID, targetModule string) (risk.Prediction, error)
	ScoreRecords(ctx context.Context, records []grades.Record, targetModule string) (risk.Prediction, error)
	AssembleFeatures(ctx context.Context, studentID, targetModule string) (scoring.FeatureReport, error)
	RecommendSimilarRisks(ctx context.Context, studentID string) ([]similarity.ModuleCount, error)
	ForecastModules(ctx context.Context, studentID string) (scoring.Forecast, error)
}

type RiskHandler struct {
	risk RiskService
}

func NewRiskHandler(svc RiskService) *RiskHandler {
	return &RiskHandler{risk: svc}
}

// GET /api/v1/students/:id/risk?module=
func (h *RiskHandler) GetRisk(c *gin.Context) {
	p, err := h.risk.Score(c.Request.Context(), studentID(c), module(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prediction": p})
}

// GET /api/v1/students/:id/features?module=
func (h *RiskHandler) GetFeatures(c *gin.Context) {
	report, err := h.risk.AssembleFeatures(c.Request.Context(), studentID(c), module(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"features": report})
}

// GET /api/v1/students/:id/similar-risks
func (h *RiskHandler) GetSimilarRisks(c *gin.Context) {
	id := studentID(c)
	modules, err := h.risk.RecommendSimilarRisks(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"student_id": id, "modules": modules})
}

// GET /api/v1/students/:id/forecast
func (h *RiskHandler) GetForecast(c *gin.Context) {
	f, err := h.risk.ForecastModules(c.Request.Context(), studentID(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"forecast": f})
}

type simulateRecord struct {
	StudentID   string   `json:"student_id"`
	Program     string   `json:"program"`
	Module      string   `json:"module"`
	Year        int      `json:"year"`
	Semester    int      `json:"semester"`
	Practical   float64  `json:"practical"`
	Theoretical float64  `json:"theoretical"`
	Total       *float64 `json:"total"`
	Status      string   `json:"status"`
}

type simulateRequest struct {
	Module  string           `json:"module"`
	Records []simulateRecord `json:"records"`
}

// POST /api/v1/risk/simulate
// Scores a hypothetical history. A missing total is practical + theoretical.
func (h *RiskHandler) Simulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(grades.CodeInvalidInput), err)
		return
	}
	if len(req.Records) > maxSimulateRecords {
		response.RespondError(c, http.StatusBadRequest, string(grades.CodeInvalidInput), errors.New("too many records"))
		return
	}
	records := make([]grades.Record, 0, len(req.Records))
	for _, r := range req.Records {
		total := math.NaN()
		if r.Total != nil {
			total = *r.Total
		}
		id := strings.TrimSpace(r.StudentID)
		if id == "" {
			id = "simulation"
		}
		records = append(records, grades.Record{
			StudentID:   id,
			Program:     r.Program,
			Module:      r.Module,
			Year:        r.Year,
			Semester:    r.Semester,
			Practical:   r.Practical,
			Theoretical: r.Theoretical,
			Total:       total,
			Status:      grades.ParseStatus(r.Status),
		})
	}
	p, err := h.risk.ScoreRecords(c.Request.Context(), records, strings.TrimSpace(req.Module))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prediction": p})
}

func studentID(c *gin.Context) string { return strings.TrimSpace(c.Param("id")) }

func module(c *gin.Context) string { return strings.TrimSpace(c.Query("module")) }
