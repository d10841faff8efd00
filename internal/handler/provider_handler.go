package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smouldering-durtles/wk-search/internal/dto"
	"github.com/smouldering-durtles/wk-search/internal/provider"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
	"github.com/smouldering-durtles/wk-search/pkg/response"
)

type suggestionProvider interface {
	Query(ctx context.Context, req provider.QueryRequest) *provider.SubjectCursor
	Type(uri string) string
	Insert(ctx context.Context, uri string, values map[string]interface{}) (string, error)
	Delete(ctx context.Context, uri, selection string, selectionArgs []*string) (int, error)
	Update(ctx context.Context, uri string, values map[string]interface{}, selection string, selectionArgs []*string) (int, error)
}

// ProviderHandler bridges the search host to the suggestion provider over HTTP.
type ProviderHandler struct {
	provider  suggestionProvider
	authority string
}

// NewProviderHandler builds a handler answering for authority.
func NewProviderHandler(provider suggestionProvider, authority string) *ProviderHandler {
	return &ProviderHandler{provider: provider, authority: authority}
}

func (h *ProviderHandler) checkAuthority(c *gin.Context) bool {
	if h.authority != "" && c.Param("authority") != h.authority {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown provider authority"))
		return false
	}
	return true
}

// Query godoc
// @Summary Search suggestions for the host
// @Tags Provider
// @Produce json
// @Param authority path string true "Provider authority"
// @Param q query string false "User-entered text"
// @Param selectionArgs query []string false "Selection arguments; the first is the query text"
// @Success 200 {object} response.Envelope
// @Router /providers/{authority}/search_suggest_query [get]
func (h *ProviderHandler) Query(c *gin.Context) {
	if !h.checkAuthority(c) {
		return
	}
	req := provider.QueryRequest{
		URI:        requestURI(c),
		Projection: c.QueryArray("projection"),
		Selection:  c.Query("selection"),
		SortOrder:  c.Query("sortOrder"),
	}
	if q, ok := c.GetQuery("q"); ok {
		req.SelectionArgs = provider.Args(q)
	} else if args := c.QueryArray("selectionArgs"); len(args) > 0 {
		req.SelectionArgs = provider.Args(args...)
	}

	cursor := h.provider.Query(c.Request.Context(), req)
	defer cursor.Close()
	response.JSON(c, http.StatusOK, renderCursor(cursor))
}

// Type godoc
// @Summary MIME type of the suggestion URI
// @Tags Provider
// @Produce json
// @Param authority path string true "Provider authority"
// @Success 200 {object} response.Envelope
// @Router /providers/{authority}/type [get]
func (h *ProviderHandler) Type(c *gin.Context) {
	if !h.checkAuthority(c) {
		return
	}
	uri := requestURI(c)
	response.JSON(c, http.StatusOK, dto.ProviderTypeResponse{URI: uri, MIME: h.provider.Type(uri)})
}

// Mutate godoc
// @Summary Insert, update and delete are not supported
// @Tags Provider
// @Produce json
// @Param authority path string true "Provider authority"
// @Failure 501 {object} response.Envelope
// @Router /providers/{authority}/search_suggest_query [post]
func (h *ProviderHandler) Mutate(c *gin.Context) {
	if !h.checkAuthority(c) {
		return
	}
	ctx := c.Request.Context()
	uri := requestURI(c)
	var err error
	switch c.Request.Method {
	case http.MethodPost:
		_, err = h.provider.Insert(ctx, uri, nil)
	case http.MethodDelete:
		_, err = h.provider.Delete(ctx, uri, c.Query("selection"), nil)
	default:
		_, err = h.provider.Update(ctx, uri, nil, c.Query("selection"), nil)
	}
	response.Error(c, err)
}

func requestURI(c *gin.Context) string {
	return "content://" + c.Param("authority") + "/search_suggest_query"
}

// renderCursor walks the cursor from the start and copies every cell.
func renderCursor(cursor *provider.SubjectCursor) dto.CursorPayload {
	payload := dto.CursorPayload{
		Columns: cursor.ColumnNames(),
		Types:   make([]string, cursor.ColumnCount()),
		Rows:    make([][]interface{}, 0, cursor.Count()),
		Count:   cursor.Count(),
	}
	for column := range payload.Types {
		payload.Types[column] = cursor.Type(column).String()
	}
	cursor.MoveToPosition(-1)
	for cursor.MoveToNext() {
		row := make([]interface{}, cursor.ColumnCount())
		for column := range row {
			switch {
			case cursor.IsNull(column):
				row[column] = nil
			case cursor.Type(column) == provider.FieldTypeInteger:
				row[column] = cursor.Long(column)
			default:
				row[column], _ = cursor.String(column)
			}
		}
		payload.Rows = append(payload.Rows, row)
	}
	return payload
}
