package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/districtcms/backend/pkg/models"
)

// DocumentRecord is the metadata indexed for one Document. Full-text
// extraction of the underlying file is a separate, out-of-scope pipeline;
// this record carries only what the repository already knows.
type DocumentRecord struct {
	ID           int64          `json:"id"`
	CourtID      models.CourtID `json:"court_id"`
	CaseID       int64          `json:"case_id"`
	Title        string         `json:"title"`
	DocumentType string         `json:"document_type"`
	IsStricken   bool           `json:"is_stricken"`
	CreatedAt    time.Time      `json:"created_at"`
}

func documentID(courtID models.CourtID, id int64) string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(string(courtID), "/", "_"), id)
}

// IndexDocument upserts a document's metadata into the index.
func (c *Client) IndexDocument(ctx context.Context, doc DocumentRecord) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document record: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      c.index,
		DocumentID: documentID(doc.CourtID, doc.ID),
		Body:       strings.NewReader(string(body)),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("indexing failed with status %s: %s", res.Status(), errBody)
	}
	return nil
}

// DeleteDocument removes a document's metadata from the index. Deleting an
// id that's already absent is not an error.
func (c *Client) DeleteDocument(ctx context.Context, courtID models.CourtID, id int64) error {
	req := opensearchapi.DeleteRequest{
		Index:      c.index,
		DocumentID: documentID(courtID, id),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete failed with status %s", res.Status())
	}
	return nil
}
