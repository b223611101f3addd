package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/niyahq/niya-backend/internal/http/response"
	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/services"
	"github.com/niyahq/niya-backend/internal/types"
)

type SourceHandler struct {
	botService    services.BotService
	sourceService services.SourceService
}

func NewSourceHandler(botService services.BotService, sourceService services.SourceService) *SourceHandler {
	return &SourceHandler{botService: botService, sourceService: sourceService}
}

// ownedBot resolves the :botID param against the authenticated owner.
func (sh *SourceHandler) ownedBot(c *gin.Context) (*types.Bot, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}
	botID, err := parseUUIDParam(c, "botID")
	if err != nil {
		return nil, err
	}
	return sh.botService.GetOwned(c.Request.Context(), userID, botID)
}

// Upload accepts a multipart document and enqueues it for ingestion.
func (sh *SourceHandler) Upload(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("missing file field")))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, apierr.Internal(fmt.Errorf("opening upload: %w", err)))
		return
	}
	defer file.Close()

	source, err := sh.sourceService.CreateFromUpload(
		c.Request.Context(),
		bot,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, source)
}

func (sh *SourceHandler) AddURL(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation(fmt.Errorf("invalid request body")))
		return
	}
	source, err := sh.sourceService.CreateFromURL(c.Request.Context(), bot, req.URL, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, source)
}

func (sh *SourceHandler) List(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	sources, err := sh.sourceService.List(c.Request.Context(), bot)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, sources)
}

func (sh *SourceHandler) Get(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	sourceID, err := parseUUIDParam(c, "sourceID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	source, err := sh.sourceService.Get(c.Request.Context(), bot, sourceID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, source)
}

func (sh *SourceHandler) Delete(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	sourceID, err := parseUUIDParam(c, "sourceID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := sh.sourceService.Delete(c.Request.Context(), bot, sourceID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (sh *SourceHandler) Reingest(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	sourceID, err := parseUUIDParam(c, "sourceID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	source, err := sh.sourceService.Reingest(c.Request.Context(), bot, sourceID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondAccepted(c, source)
}

func (sh *SourceHandler) ListChunks(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	sourceID, err := parseUUIDParam(c, "sourceID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	chunks, err := sh.sourceService.ListChunks(c.Request.Context(), bot, sourceID, limit, offset)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, chunkViews(chunks))
}

// ListBotChunks pages through every chunk indexed for the bot, across all
// sources.
func (sh *SourceHandler) ListBotChunks(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	limit := queryInt(c, "limit", 100)
	chunks, err := sh.sourceService.ListBotChunks(c.Request.Context(), bot, limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, chunkViews(chunks))
}

func (sh *SourceHandler) GetChunk(c *gin.Context) {
	bot, err := sh.ownedBot(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	chunkID, err := parseUUIDParam(c, "chunkID")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	chunk, err := sh.sourceService.GetChunk(c.Request.Context(), bot, chunkID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, chunkView(chunk))
}

// chunkSummary is the inspection view of a chunk; the embedding itself is
// never serialized.
type chunkSummary struct {
	ID         uuid.UUID `json:"id"`
	SourceID   uuid.UUID `json:"source_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	TokenCount int       `json:"token_count"`
	CharStart  int       `json:"char_start"`
	CharEnd    int       `json:"char_end"`
	Heading    string    `json:"heading,omitempty"`
}

func chunkView(chunk *types.Chunk) chunkSummary {
	return chunkSummary{
		ID:         chunk.ID,
		SourceID:   chunk.SourceID,
		Index:      chunk.Index,
		Text:       chunk.Text,
		TokenCount: chunk.TokenCount,
		CharStart:  chunk.CharStart,
		CharEnd:    chunk.CharEnd,
		Heading:    chunk.Heading,
	}
}

func chunkViews(chunks []*types.Chunk) []chunkSummary {
	out := make([]chunkSummary, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, chunkView(chunk))
	}
	return out
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
