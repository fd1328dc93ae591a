package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/loltft/rudefriend/internal/models"
)

const BoardIndex = "boards"

// BoardDoc is the shape of a board stored in the search index. It keeps
// only the searchable fields, the full row stays in the database.
type BoardDoc struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	GameType string    `json:"gameType"`
	Tags     []string  `json:"tags"`
}

func DocFromBoard(b *models.Board) BoardDoc {
	tags := make([]string, len(b.Tags))
	for i, t := range b.Tags {
		tags[i] = t.Tag
	}
	return BoardDoc{
		ID:       b.ID,
		Title:    b.Title,
		Content:  b.Content,
		GameType: string(b.GameType),
		Tags:     tags,
	}
}

func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []BoardDoc, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^2", "content", "tags"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source BoardDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]BoardDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

func IndexBoard(ctx context.Context, es *elasticsearch.Client, index string, b *models.Board) error {
	doc := DocFromBoard(b)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: encode doc: %w", err)
	}

	res, err := es.Index(
		index,
		strings.NewReader(string(data)),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(doc.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: index %s: %s", res.Status(), msg)
	}
	return nil
}

func DeleteBoard(ctx context.Context, es *elasticsearch.Client, index string, id uuid.UUID) error {
	res, err := es.Delete(
		index,
		id.String(),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: delete: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: delete %s: %s", res.Status(), msg)
	}
	return nil
}
