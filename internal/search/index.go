// internal/search/index.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/models"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Document is the searchable projection of an application.
type Document struct {
	ID                     string     `json:"id"`
	UserID                 string     `json:"user_id"`
	ApplicationType        string     `json:"application_type"`
	CreativeSector         string     `json:"creative_sector"`
	BusinessStage          string     `json:"business_stage"`
	BusinessName           string     `json:"business_name"`
	BusinessDescription    string     `json:"business_description"`
	ProjectTitle           string     `json:"project_title"`
	ProjectDescription     string     `json:"project_description"`
	FundingAmountRequested float64    `json:"funding_amount_requested"`
	Status                 string     `json:"status"`
	CreatedAt              time.Time  `json:"created_at"`
	SubmittedAt            *time.Time `json:"submitted_at,omitempty"`
}

func DocumentFrom(app *models.Application) Document {
	return Document{
		ID:                     app.ID,
		UserID:                 app.UserID,
		ApplicationType:        string(app.ApplicationType),
		CreativeSector:         string(app.CreativeSector),
		BusinessStage:          string(app.BusinessStage),
		BusinessName:           app.BusinessName,
		BusinessDescription:    app.BusinessDescription,
		ProjectTitle:           app.ProjectTitle,
		ProjectDescription:     app.ProjectDescription,
		FundingAmountRequested: app.FundingAmountRequested,
		Status:                 string(app.Status),
		CreatedAt:              app.CreatedAt,
		SubmittedAt:            app.SubmittedAt,
	}
}

type Query struct {
	Text   string
	Status models.Status
	Sector models.CreativeSector
	From   int
	Size   int
}

type Result struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":                       map[string]string{"type": "keyword"},
			"user_id":                  map[string]string{"type": "keyword"},
			"application_type":         map[string]string{"type": "keyword"},
			"creative_sector":          map[string]string{"type": "keyword"},
			"business_stage":           map[string]string{"type": "keyword"},
			"status":                   map[string]string{"type": "keyword"},
			"business_name":            map[string]string{"type": "text"},
			"business_description":     map[string]string{"type": "text"},
			"project_title":            map[string]string{"type": "text"},
			"project_description":      map[string]string{"type": "text"},
			"funding_amount_requested": map[string]string{"type": "double"},
			"created_at":               map[string]string{"type": "date"},
			"submitted_at":             map[string]string{"type": "date"},
		},
	},
}

// Index keeps the admin search index in sync. A nil client disables it and
// every call becomes a no-op.
type Index struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *Index {
	return &Index{client: client, index: index, logger: logger.Component(log, "search-index")}
}

func (i *Index) Enabled() bool {
	return i != nil && i.client != nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}

	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.NewSearchQueryFailedError(i.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := json.Marshal(indexMapping)
	res, err = i.client.Indices.Create(i.index,
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return errors.NewSearchQueryFailedError(i.index, fmt.Errorf("create index: %s", res.Status()))
	}

	i.logger.Info("Created search index", map[string]interface{}{"index": i.index})
	return nil
}

// Index upserts the application document by id.
func (i *Index) Index(ctx context.Context, app *models.Application) error {
	if !i.Enabled() {
		return nil
	}

	body, err := json.Marshal(DocumentFrom(app))
	if err != nil {
		return fmt.Errorf("encode search document: %w", err)
	}

	res, err := i.client.Index(i.index, bytes.NewReader(body),
		i.client.Index.WithDocumentID(app.ID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError(i.index, fmt.Errorf("index document %s: %s", app.ID, res.Status()))
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns matching application ids ordered by relevance, then recency.
func (i *Index) Search(ctx context.Context, q Query) (*Result, error) {
	if !i.Enabled() {
		return &Result{IDs: []string{}}, nil
	}

	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(i.index, fmt.Errorf("search: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(i.index, fmt.Errorf("decode search response: %w", err))
	}

	result := &Result{IDs: make([]string, 0, len(parsed.Hits.Hits)), Total: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		result.IDs = append(result.IDs, hit.ID)
	}
	return result, nil
}

// BuildQuery builds the bool query body for q.
func BuildQuery(q Query) map[string]interface{} {
	size := q.Size
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	from := q.From
	if from < 0 {
		from = 0
	}

	must := []interface{}{}
	filter := []interface{}{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"business_name^3", "project_title^3", "business_description", "project_description"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if q.Status != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": string(q.Status)},
		})
	}
	if q.Sector != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"creative_sector": string(q.Sector)},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
		},
		"from":    from,
		"size":    size,
		"_source": false,
	}
}
