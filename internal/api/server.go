package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/beingthebridges/grantpal/internal/ai"
	"github.com/beingthebridges/grantpal/internal/answers"
	"github.com/beingthebridges/grantpal/internal/auth"
	"github.com/beingthebridges/grantpal/internal/calendar"
	"github.com/beingthebridges/grantpal/internal/config"
	"github.com/beingthebridges/grantpal/internal/db"
	"github.com/beingthebridges/grantpal/internal/errs"
	"github.com/beingthebridges/grantpal/internal/extract"
	"github.com/beingthebridges/grantpal/internal/match"
	"github.com/beingthebridges/grantpal/internal/models"
)

// maxUploadBytes caps document uploads read into memory.
const maxUploadBytes = 20 << 20

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	AI          *ai.OpenAIClient
	Extractor   *extract.Extractor
	Answers     *answers.Generator
	Calendar    *calendar.Client
}

func NewServer(pool *pgxpool.Pool, cfg *config.Config) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from config or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if cfg.CORSOrigins != "" {
		for _, o := range strings.Split(cfg.CORSOrigins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	store := db.NewStore(pool)
	aiClient := ai.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.EmbedModel, cfg.LLMTimeout())
	fetcher := extract.NewPageFetcher(cfg.FetchTimeout(), cfg.Fetch.UserAgent)

	s := &Server{
		Store:       store,
		AuthService: auth.NewService(pool),
		Echo:        e,
		AI:          aiClient,
		Extractor:   extract.NewExtractor(aiClient, fetcher, store, aiClient),
		Answers:     answers.NewGenerator(aiClient),
		Calendar:    calendar.NewClient(cfg.Calendar.CalendarID, cfg.Calendar.CredentialsFile, cfg.Calendar.TimeZone),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.POST("/evaluate", s.handleEvaluate)
	api.POST("/eligibility", s.handleEligibility)
	api.GET("/grants", s.handleListGrants)
	api.GET("/grants/:id", s.handleGetGrant)
	api.GET("/matches", s.handleListMatches)
	api.POST("/answers/generate", s.handleGenerateAnswers)
	api.POST("/answers/regenerate", s.handleRegenerateAnswer)

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Confirming a match and booking reminders require a signed-in user.
	protected := api.Group("")
	protected.Use(auth.Middleware)
	protected.POST("/matches", s.handleSaveMatch)
	protected.POST("/calendar/events", s.handleCreateCalendarEvent)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// respondError converts the error taxonomy into an HTTP status and the
// standard {"error": message} payload.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindInput:
		status = http.StatusBadRequest
	case errs.KindExtraction:
		status = http.StatusUnprocessableEntity
	case errs.KindUpstream:
		status = http.StatusBadGateway
	case errs.KindConfig:
		status = http.StatusInternalServerError
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func (s *Server) handleEvaluate(c echo.Context) error {
	mode := c.FormValue("mode")
	if mode == "" {
		mode = extract.ModeGrant
	}
	if mode != extract.ModeGrant && mode != extract.ModeProject {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "mode must be 'grant' or 'project'"})
	}

	input := extract.Input{Mode: mode}

	if fileHeader, err := c.FormFile("file"); err == nil {
		data, err := readUpload(func() (io.ReadCloser, error) { return fileHeader.Open() })
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
		}
		input.File = &extract.FileInput{Filename: fileHeader.Filename, Data: data}
	} else if rawURL := strings.TrimSpace(c.FormValue("url")); rawURL != "" {
		if err := validatePublicURL(rawURL); err != nil {
			return respondError(c, err)
		}
		input.URL = rawURL
	}

	data, err := s.Extractor.Extract(c.Request().Context(), input)
	if err != nil {
		c.Logger().Errorf("Extraction failed: %v", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, data)
}

type eligibilityRequest struct {
	Grant   map[string]any `json:"grant"`
	Project map[string]any `json:"project"`
}

func (s *Server) handleEligibility(c echo.Context) error {
	var req eligibilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Grant == nil {
		req.Grant = map[string]any{}
	}
	if req.Project == nil {
		req.Project = map[string]any{}
	}

	return c.JSON(http.StatusOK, match.Score(req.Grant, req.Project))
}

func (s *Server) handleListGrants(c echo.Context) error {
	params := db.GrantListParams{}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		params.Offset = v
	}

	if q := c.QueryParam("q"); q != "" {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		vec, err := s.AI.GenerateEmbedding(aiCtx, q)
		if err != nil {
			c.Logger().Errorf("Failed to generate query embedding: %v", err)
			// Fall back to recency ordering.
		} else {
			params.QueryEmbedding = vec
		}
	}

	grants, err := s.Store.ListGrants(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("Failed to list grants: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if grants == nil {
		grants = []models.GrantRecord{}
	}
	return c.JSON(http.StatusOK, grants)
}

func (s *Server) handleGetGrant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}
	grant, err := s.Store.GetGrant(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, grant)
}

func (s *Server) handleListMatches(c echo.Context) error {
	matches, err := s.Store.ListMatches(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("Failed to list matches: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	if matches == nil {
		matches = []models.MatchRow{}
	}
	return c.JSON(http.StatusOK, matches)
}

type saveMatchRequest struct {
	GrantID         string `json:"grant_id"`
	ProjectName     string `json:"project_name"`
	ProjectTimeline string `json:"project_timeline"`
	ProjectBudget   string `json:"project_budget"`
	ProjectTags     string `json:"project_tags"`
	SourceURL       string `json:"source_url"`
	MatchPercent    int    `json:"match_percent"`
	IsUrgent        bool   `json:"is_urgent"`
}

func (s *Server) handleSaveMatch(c echo.Context) error {
	var req saveMatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.ProjectName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "project_name is required"})
	}

	params := db.SaveMatchParams{
		Project: models.ProjectRecord{
			Name:       req.ProjectName,
			Timeline:   req.ProjectTimeline,
			Budget:     req.ProjectBudget,
			Directions: req.ProjectTags,
			SourceURL:  req.SourceURL,
		},
		MatchScore: req.MatchPercent,
		IsUrgent:   req.IsUrgent,
	}
	if req.GrantID != "" {
		grantID, err := uuid.Parse(req.GrantID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
		}
		params.GrantID = &grantID
	}

	saved, err := s.Store.SaveMatch(c.Request().Context(), params)
	if err != nil {
		if err == db.ErrNoGrant {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		c.Logger().Errorf("Failed to save match: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, saved)
}

type calendarEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (s *Server) handleCreateCalendarEvent(c echo.Context) error {
	var req calendarEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Title == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
	}

	event, err := s.Calendar.CreateEvent(c.Request().Context(), req.Title, req.Description, req.Date)
	if err != nil {
		c.Logger().Errorf("Calendar error: %v", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true, "event": event})
}

func (s *Server) handleGenerateAnswers(c echo.Context) error {
	questionsText, err := formFileText(c, "questions")
	if err != nil {
		return respondError(c, err)
	}
	proposalText, err := formFileText(c, "proposal")
	if err != nil {
		return respondError(c, err)
	}
	if strings.TrimSpace(questionsText) == "" || strings.TrimSpace(proposalText) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Empty or unsupported file types"})
	}

	result, err := s.Answers.Generate(c.Request().Context(), questionsText, proposalText)
	if err != nil {
		c.Logger().Errorf("Answer generation failed: %v", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"answers":  result,
		"proposal": proposalText,
	})
}

type regenerateRequest struct {
	Question string `json:"question"`
	Proposal string `json:"proposal"`
}

func (s *Server) handleRegenerateAnswer(c echo.Context) error {
	var req regenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	answer, err := s.Answers.Regenerate(c.Request().Context(), req.Question, req.Proposal)
	if err != nil {
		c.Logger().Errorf("Answer regeneration failed: %v", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password are required"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func readUpload(open func() (io.ReadCloser, error)) ([]byte, error) {
	f, err := open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

// formFileText reads a multipart file field and converts it to plain text.
// A missing field is an input error.
func formFileText(c echo.Context, field string) (string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", errs.Input("missing %s file", field)
	}
	data, err := readUpload(func() (io.ReadCloser, error) { return fileHeader.Open() })
	if err != nil {
		return "", errs.Input("failed to read %s file", field)
	}
	return extract.TextFromFile(fileHeader.Filename, data)
}

// validatePublicURL rejects URLs that point at private or special networks.
func validatePublicURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errs.Input("invalid URL scheme")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errs.Input("URL host is required")
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".local") {
		return errs.Input("internal network access forbidden")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return errs.Input("unable to resolve URL host")
	}
	if len(ips) == 0 {
		return errs.Input("URL host resolved to no addresses")
	}
	for _, ip := range ips {
		if isPrivateOrSpecialIP(ip) {
			return errs.Input("internal network access forbidden")
		}
	}
	return nil
}

func isPrivateOrSpecialIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 100 && ip4[1]&0xC0 == 64 {
			return true
		}
		if ip4[0] == 169 && ip4[1] == 254 {
			return true
		}
	}

	return false
}
