package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smouldering-durtles/wk-search/internal/models"
	appErrors "github.com/smouldering-durtles/wk-search/pkg/errors"
)

// SuggestMIMEType is the content type the search host expects for suggestion lists.
const SuggestMIMEType = "vnd.android.cursor.dir/vnd.android.search.suggest"

// SubjectSearcher is the read side of the subject store.
type SubjectSearcher interface {
	SearchSuggestions(ctx context.Context, query string, limit int) []models.Subject
}

// QueryRequest carries a host query. Only SelectionArgs[0] is consulted; a nil
// element stands for an absent argument.
type QueryRequest struct {
	URI           string
	Projection    []string
	Selection     string
	SelectionArgs []*string
	SortOrder     string
}

// Args builds selection arguments from plain strings.
func Args(values ...string) []*string {
	args := make([]*string, len(values))
	for i := range values {
		v := values[i]
		args[i] = &v
	}
	return args
}

// SuggestionProvider answers the platform search host with subject suggestions.
type SuggestionProvider struct {
	subjects SubjectSearcher
	limit    int
	logger   *zap.Logger
}

// NewSuggestionProvider builds a provider. limit <= 0 defers to the store default.
func NewSuggestionProvider(subjects SubjectSearcher, limit int, logger *zap.Logger) *SuggestionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionProvider{subjects: subjects, limit: limit, logger: logger}
}

// Query returns a cursor over the suggestions for SelectionArgs[0]. It never fails:
// a missing query or any failure below yields an empty cursor.
func (p *SuggestionProvider) Query(ctx context.Context, req QueryRequest) (cursor *SubjectCursor) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("suggestion query panicked", zap.String("uri", req.URI), zap.Any("panic", r))
			cursor = NewSubjectCursor(nil)
		}
	}()

	if len(req.SelectionArgs) == 0 || req.SelectionArgs[0] == nil || p.subjects == nil {
		return NewSubjectCursor(nil)
	}
	return NewSubjectCursor(p.subjects.SearchSuggestions(ctx, *req.SelectionArgs[0], p.limit))
}

// Type returns the MIME type of every provider URI.
func (p *SuggestionProvider) Type(uri string) string {
	return SuggestMIMEType
}

// Insert is not supported.
func (p *SuggestionProvider) Insert(ctx context.Context, uri string, values map[string]interface{}) (string, error) {
	return "", unsupported("insert")
}

// Delete is not supported.
func (p *SuggestionProvider) Delete(ctx context.Context, uri, selection string, selectionArgs []*string) (int, error) {
	return 0, unsupported("delete")
}

// Update is not supported.
func (p *SuggestionProvider) Update(ctx context.Context, uri string, values map[string]interface{}, selection string, selectionArgs []*string) (int, error) {
	return 0, unsupported("update")
}

func unsupported(op string) error {
	return appErrors.Clone(appErrors.ErrUnsupported, fmt.Sprintf("%s is not supported by the suggestion provider", op))
}
