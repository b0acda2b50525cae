// Package httpapi is the public REST surface: scenario datasets, dataset
// uploads through the classifier, simulation readings, live location
// ingestion, and incident reports.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// ScenarioStore is the prediction/simulation persistence the API needs.
type ScenarioStore interface {
	ListScenarios(ctx context.Context) ([]string, error)
	ScenarioDocs(ctx context.Context, scenario string) ([]map[string]any, error)
	InsertPredictions(ctx context.Context, scenario string, predictions []domain.Prediction) error
	InsertSimulationReading(ctx context.Context, r domain.SimulationReading) error
	ListSimulationReadings(ctx context.Context) ([]domain.SimulationReading, error)
	ClearSimulationReadings(ctx context.Context) error
}

// LiveStore is the live-store surface the API needs: location ingestion,
// presence transitions, verdict reads, and incident reports.
type LiveStore interface {
	UpdateLocation(ctx context.Context, entityID string, lat, lon float64) error
	SetPresence(ctx context.Context, entityID string, online bool) error
	Verdict(ctx context.Context, entityID string) (map[string]string, error)
	CreateReport(ctx context.Context, r domain.IncidentReport) (domain.IncidentReport, error)
	ListReports(ctx context.Context) ([]domain.IncidentReport, error)
}

// Classifier runs the external inference process over uploaded rows.
type Classifier interface {
	Predict(ctx context.Context, rows []map[string]any) ([]domain.Prediction, error)
}

// Server is the public HTTP API.
type Server struct {
	httpServer *http.Server
	scenarios  ScenarioStore
	live       LiveStore
	classifier Classifier
	logger     *slog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(addr string, scenarios ScenarioStore, live LiveStore, classifier Classifier, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		scenarios:  scenarios,
		live:       live,
		classifier: classifier,
		logger:     logger,
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/scenarios", s.handleListScenarios)
	api.GET("/scenario/:name", s.handleScenario)
	api.POST("/store-prediction", s.handleStorePrediction)
	api.POST("/process-json", s.handleProcessJSON)
	api.POST("/simulation", s.handleCreateSimulation)
	api.GET("/simulation", s.handleListSimulation)
	api.DELETE("/simulation", s.handleClearSimulation)
	api.POST("/update-location", s.handleUpdateLocation)
	api.POST("/presence", s.handlePresence)
	api.GET("/safety/:id", s.handleSafety)
	api.POST("/reports", s.handleCreateReport)
	api.GET("/reports", s.handleListReports)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleListScenarios(c *gin.Context) {
	names, err := s.scenarios.ListScenarios(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusBadGateway, "listing scenarios", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": names})
}

func (s *Server) handleScenario(c *gin.Context) {
	name := c.Param("name")
	docs, err := s.scenarios.ScenarioDocs(c.Request.Context(), name)
	if err != nil {
		s.fail(c, http.StatusBadGateway, "loading scenario", err)
		return
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) handleStorePrediction(c *gin.Context) {
	var req struct {
		Scenario    string              `json:"scenario" binding:"required"`
		Predictions []domain.Prediction `json:"predictions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.scenarios.InsertPredictions(c.Request.Context(), req.Scenario, req.Predictions); err != nil {
		s.fail(c, http.StatusBadGateway, "storing predictions", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"scenario": req.Scenario, "stored": len(req.Predictions)})
}

// handleProcessJSON accepts a dataset upload, runs it through the
// classifier, and stores the predictions as a new scenario named after
// the file unless overridden by the "scenario" form field.
func (s *Server) handleProcessJSON(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	var rows []map[string]any
	if err := json.NewDecoder(file).Decode(&rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a JSON array of rows"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dataset is empty"})
		return
	}

	scenario := c.PostForm("scenario")
	if scenario == "" {
		scenario = scenarioNameFromFile(fileHeader.Filename)
	}

	predictions, err := s.classifier.Predict(c.Request.Context(), rows)
	if err != nil {
		s.fail(c, http.StatusBadGateway, "classifier run", err)
		return
	}

	if err := s.scenarios.InsertPredictions(c.Request.Context(), scenario, predictions); err != nil {
		s.fail(c, http.StatusBadGateway, "storing predictions", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"scenario": scenario,
		"rows":     len(rows),
		"stored":   len(predictions),
	})
}

func (s *Server) handleCreateSimulation(c *gin.Context) {
	var reading domain.SimulationReading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.scenarios.InsertSimulationReading(c.Request.Context(), reading); err != nil {
		s.fail(c, http.StatusBadGateway, "storing simulation reading", err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

func (s *Server) handleListSimulation(c *gin.Context) {
	readings, err := s.scenarios.ListSimulationReadings(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusBadGateway, "loading simulation readings", err)
		return
	}
	if readings == nil {
		readings = []domain.SimulationReading{}
	}
	c.JSON(http.StatusOK, readings)
}

func (s *Server) handleClearSimulation(c *gin.Context) {
	if err := s.scenarios.ClearSimulationReadings(c.Request.Context()); err != nil {
		s.fail(c, http.StatusBadGateway, "clearing simulation readings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) handleUpdateLocation(c *gin.Context) {
	var req struct {
		EntityID string  `json:"entity_id" binding:"required"`
		Lat      float64 `json:"lat"`
		Lon      float64 `json:"lon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.live.UpdateLocation(c.Request.Context(), req.EntityID, req.Lat, req.Lon); err != nil {
		s.fail(c, http.StatusBadGateway, "storing location", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_id": req.EntityID})
}

func (s *Server) handlePresence(c *gin.Context) {
	var req struct {
		EntityID string `json:"entity_id" binding:"required"`
		Online   *bool  `json:"online" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.live.SetPresence(c.Request.Context(), req.EntityID, *req.Online); err != nil {
		s.fail(c, http.StatusBadGateway, "storing presence", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity_id": req.EntityID, "online": *req.Online})
}

func (s *Server) handleSafety(c *gin.Context) {
	verdict, err := s.live.Verdict(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusBadGateway, "loading verdict", err)
		return
	}
	if len(verdict) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no verdict published for entity"})
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleCreateReport(c *gin.Context) {
	var req struct {
		EntityID    string  `json:"entity_id" binding:"required"`
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.live.CreateReport(c.Request.Context(), domain.IncidentReport{
		EntityID:    req.EntityID,
		Lat:         req.Lat,
		Lon:         req.Lon,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, http.StatusBadGateway, "storing report", err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleListReports(c *gin.Context) {
	reports, err := s.live.ListReports(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusBadGateway, "loading reports", err)
		return
	}
	if reports == nil {
		reports = []domain.IncidentReport{}
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) fail(c *gin.Context, status int, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func scenarioNameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
