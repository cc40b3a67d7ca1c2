package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quotedeck/quote-service/internal/adapters/http/dto"
	"github.com/quotedeck/quote-service/internal/app"
	"github.com/quotedeck/quote-service/internal/domain"
)

// QuoteHandler serves the quote API off the application facade.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler builds the handler around the given quote service.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		service: service,
	}
}

// QuoteResponse is the wire form of a single quote.
type QuoteResponse struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Author   string   `json:"author"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Source   string   `json:"source,omitempty"`
}

func toQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{
		ID:       q.ID,
		Text:     q.Text,
		Author:   q.Author,
		Category: q.Category,
		Tags:     q.Tags,
		Source:   q.Source,
	}
}

func toQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toQuoteResponse(q))
	}

	return out
}

// SearchResponse carries search hits plus the echoed query.
type SearchResponse struct {
	Query  string          `json:"query"`
	Source string          `json:"source,omitempty"`
	Count  int             `json:"count"`
	Quotes []QuoteResponse `json:"quotes"`
}

// BulkQuotesRequest asks for a batch of quotes.
type BulkQuotesRequest struct {
	Count   int      `json:"count" validate:"required,gte=1"`
	Sources []string `json:"sources" validate:"omitempty,dive,notempty"`
}

// BulkQuotesResponse returns however much of the batch could be filled.
type BulkQuotesResponse struct {
	Count  int             `json:"count"`
	Quotes []QuoteResponse `json:"quotes"`
}

// QuoteEventRequest records an engagement event against a quote.
type QuoteEventRequest struct {
	Type string `json:"type" validate:"required,oneof=view like save"`
}

// QuoteEventResponse acknowledges a recorded engagement event.
type QuoteEventResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ProviderHealthEntry is one source's fetch history in a health report.
type ProviderHealthEntry struct {
	Source              string     `json:"source"`
	Status              string     `json:"status"`
	SuccessCount        int64      `json:"success_count"`
	FailureCount        int64      `json:"failure_count"`
	ConsecutiveFailures int64      `json:"consecutive_failures"`
	SuccessRate         float64    `json:"success_rate"`
	LastChecked         *time.Time `json:"last_checked,omitempty"`
}

// ProviderHealthResponse is the HTTP response for the provider health report.
type ProviderHealthResponse struct {
	Providers []ProviderHealthEntry `json:"providers"`
}

func toProviderHealthEntry(h domain.ProviderHealth) ProviderHealthEntry {
	entry := ProviderHealthEntry{
		Source:              h.Source,
		Status:              string(h.Status),
		SuccessCount:        h.SuccessCount,
		FailureCount:        h.FailureCount,
		ConsecutiveFailures: h.ConsecutiveFailures,
		SuccessRate:         h.SuccessRate(),
	}
	if !h.LastChecked.IsZero() {
		checked := h.LastChecked
		entry.LastChecked = &checked
	}

	return entry
}

// SourceWeightsRequest replaces the provider selection weights.
type SourceWeightsRequest struct {
	Weights map[string]float64 `json:"weights" validate:"required,dive,gte=0"`
}

// SourceWeightsResponse reports the active provider selection weights.
type SourceWeightsResponse struct {
	Weights map[string]float64 `json:"weights"`
}

// GetDailyQuote handles GET /api/v1/quotes/daily
// Returns today's quote, serving the cache when it is fresh.
//
// @Summary Get the quote of the day
// @Description Returns today's deterministic quote, refreshing from providers when the cache is stale
// @Tags quotes
// @Produce json
// @Param force query bool false "Bypass the cache and refresh from providers"
// @Success 200 {object} QuoteResponse
// @Router /api/v1/quotes/daily [get]
func (h *QuoteHandler) GetDailyQuote(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))

	quote := h.service.FetchDailyQuote(c.Request.Context(), force)
	c.JSON(http.StatusOK, toQuoteResponse(quote))
}

// GetQuoteForDay handles GET /api/v1/quotes/day/:date
// Returns the deterministic quote for a specific day.
//
// @Summary Get the quote for a day
// @Description Returns the quote selected for the given YYYY-MM-DD day
// @Tags quotes
// @Produce json
// @Param date path string true "Day in YYYY-MM-DD format"
// @Param force query bool false "Bypass the cache and refresh from providers"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/day/{date} [get]
func (h *QuoteHandler) GetQuoteForDay(c *gin.Context) {
	day, err := domain.ParseDayKey(c.Param("date"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	force, _ := strconv.ParseBool(c.Query("force"))

	quote := h.service.QuoteForDay(c.Request.Context(), day, force)
	c.JSON(http.StatusOK, toQuoteResponse(quote))
}

// SearchQuotes handles GET /api/v1/quotes/search
// Searches the named source and the local pool for matching quotes.
//
// @Summary Search quotes
// @Description Matches quotes by text, author, or tag, optionally against a named source
// @Tags quotes
// @Produce json
// @Param q query string true "Search term"
// @Param source query string false "Quote source to search"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/search [get]
func (h *QuoteHandler) SearchQuotes(c *gin.Context) {
	query := c.Query("q")
	source := c.Query("source")

	quotes, err := h.service.SearchQuotes(c.Request.Context(), source, query)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		Query:  query,
		Source: source,
		Count:  len(quotes),
		Quotes: toQuoteResponses(quotes),
	})
}

// BulkQuotes handles POST /api/v1/quotes/bulk
// Fetches a deduplicated batch of quotes from the configured sources.
//
// @Summary Fetch quotes in bulk
// @Description Gathers up to count quotes across concurrent provider draws
// @Tags quotes
// @Accept json
// @Produce json
// @Param request body BulkQuotesRequest true "Bulk fetch request"
// @Success 200 {object} BulkQuotesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/bulk [post]
func (h *QuoteHandler) BulkQuotes(c *gin.Context) {
	var req BulkQuotesRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}

	quotes := h.service.BulkQuotes(c.Request.Context(), app.BulkRequest{
		Count:   req.Count,
		Sources: req.Sources,
	})

	c.JSON(http.StatusOK, BulkQuotesResponse{
		Count:  len(quotes),
		Quotes: toQuoteResponses(quotes),
	})
}

// RecordQuoteEvent handles POST /api/v1/quotes/:id/events
// Records a view, like, or save against a quote.
//
// @Summary Record a quote event
// @Description Counts an engagement event for the analytics report
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body QuoteEventRequest true "Event to record"
// @Success 202 {object} QuoteEventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{id}/events [post]
func (h *QuoteHandler) RecordQuoteEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"quote ID is required",
		).WithTraceID(dto.GetTraceID(c)))
		return
	}

	var req QuoteEventRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}

	ctx := c.Request.Context()

	switch req.Type {
	case "view":
		h.service.RecordView(ctx, id)
	case "like":
		h.service.RecordLike(ctx, id)
	case "save":
		h.service.RecordSave(ctx, id)
	}

	c.JSON(http.StatusAccepted, QuoteEventResponse{ID: id, Type: req.Type})
}

// GetProviderHealth handles GET /api/v1/providers/health
// Reports the fetch history and derived status of every quote source.
//
// @Summary Get provider health
// @Description Reports success rates and status per configured quote source
// @Tags providers
// @Produce json
// @Success 200 {object} ProviderHealthResponse
// @Router /api/v1/providers/health [get]
func (h *QuoteHandler) GetProviderHealth(c *gin.Context) {
	statuses := h.service.HealthStatus()

	entries := make([]ProviderHealthEntry, 0, len(statuses))
	for _, s := range statuses {
		entries = append(entries, toProviderHealthEntry(s))
	}

	c.JSON(http.StatusOK, ProviderHealthResponse{Providers: entries})
}

// UpdateSourceWeights handles PUT /api/v1/providers/weights
// Replaces the provider selection weights.
//
// @Summary Update provider weights
// @Description Replaces the relative selection weights used for provider draws
// @Tags providers
// @Accept json
// @Produce json
// @Param request body SourceWeightsRequest true "Replacement weights"
// @Success 200 {object} SourceWeightsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/providers/weights [put]
func (h *QuoteHandler) UpdateSourceWeights(c *gin.Context) {
	var req SourceWeightsRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindingError(c, err)
		return
	}

	h.service.UpdateSourceWeights(req.Weights)

	c.JSON(http.StatusOK, SourceWeightsResponse{
		Weights: h.service.SourceWeights(),
	})
}

// GetAnalytics handles GET /api/v1/analytics
// Reports the accumulated engagement counters.
//
// @Summary Get analytics
// @Description Reports view, like, save, and cache counters
// @Tags analytics
// @Produce json
// @Success 200 {object} app.AnalyticsReport
// @Router /api/v1/analytics [get]
func (h *QuoteHandler) GetAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Analytics(c.Request.Context()))
}

// respondBindingError writes a 400 for request binding failures, with
// field details when the validator produced them.
func respondBindingError(c *gin.Context, err error) {
	if fields := dto.ValidationErrors(err); len(fields) > 0 {
		dto.RespondWithValidationErrors(c, fields)
		return
	}

	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.ErrorCodeBadRequest,
		"request body could not be parsed",
	).WithTraceID(dto.GetTraceID(c)))
}

// RegisterQuoteRoutes mounts the public quote endpoints under rg.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("/daily", h.GetDailyQuote)
	quotes.GET("/day/:date", h.GetQuoteForDay)
	quotes.GET("/search", h.SearchQuotes)
	quotes.POST("/bulk", h.BulkQuotes)
	quotes.POST("/:id/events", h.RecordQuoteEvent)

	providers := rg.Group("/providers")
	providers.GET("/health", h.GetProviderHealth)

	rg.GET("/analytics", h.GetAnalytics)
}

// RegisterAdminRoutes registers routes that require elevated access.
// The caller attaches the authorization middleware to the group.
func (h *QuoteHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/providers/weights", h.UpdateSourceWeights)
}
