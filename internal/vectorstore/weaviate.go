package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateConfig locates a Weaviate instance.
type WeaviateConfig struct {
	Host   string
	Scheme string
	APIKey string
}

// WeaviateStore maps collections onto Weaviate classes with externally
// supplied vectors.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore connects a Weaviate client.
func NewWeaviateStore(cfg WeaviateConfig) (*WeaviateStore, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("weaviate host is required")
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: scheme}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateStore{client: client}, nil
}

func (s *WeaviateStore) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	class := ClassName(name)
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return fmt.Errorf("check weaviate class %s: %w", class, err)
	}
	if exists {
		return nil
	}
	err = s.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:       class,
		Description: fmt.Sprintf("%s passages (%d dimensions)", name, dimensions),
		Vectorizer:  "none",
		VectorIndexConfig: map[string]any{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "docId", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
			{Name: "payload", DataType: []string{"text"}},
		},
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("create weaviate class %s: %w", class, err)
	}
	return nil
}

func (s *WeaviateStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := validateDocs(docs, 0); err != nil {
		return err
	}
	class := ClassName(collection)
	objects := make([]*models.Object, 0, len(docs))
	for _, d := range docs {
		payload, err := json.Marshal(d.Payload)
		if err != nil {
			return fmt.Errorf("encode payload %s: %w", d.ID, err)
		}
		objects = append(objects, &models.Object{
			Class: class,
			ID:    strfmt.UUID(ObjectID(collection, d.ID)),
			Properties: map[string]any{
				"docId":   d.ID,
				"text":    d.Text,
				"payload": string(payload),
			},
			Vector: d.Vector,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch upsert: %w", err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 && r.Result.Errors.Error[0] != nil {
			return fmt.Errorf("weaviate batch object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *WeaviateStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 3
	}
	class := ClassName(collection)
	gql := s.client.GraphQL()
	result, err := gql.Get().
		WithClassName(class).
		WithFields(
			graphql.Field{Name: "docId"},
			graphql.Field{Name: "text"},
			graphql.Field{Name: "payload"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(gql.NearVectorArgBuilder().WithVector(vector)).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 && result.Errors[0] != nil {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}
	return decodeMatches(result.Data, class)
}

// ClassName converts a collection name into a valid Weaviate class name
// ("job_market" becomes "Job_market").
func ClassName(collection string) string {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return ""
	}
	r := []rune(collection)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// ObjectID derives a stable UUID for a document so re-indexing overwrites it.
func ObjectID(collection, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(collection+"/"+id)).String()
}

func decodeMatches(data map[string]models.JSONObject, class string) ([]Match, error) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil, errors.New("weaviate response missing Get")
	}
	items, ok := get[class].([]any)
	if !ok {
		if get[class] == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("weaviate response %s is not a list", class)
	}

	out := make([]Match, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("invalid element in weaviate results")
		}
		var m Match
		m.ID, _ = obj["docId"].(string)
		m.Text, _ = obj["text"].(string)
		if raw, _ := obj["payload"].(string); raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &m.Payload); err != nil {
				return nil, fmt.Errorf("decode payload %s: %w", m.ID, err)
			}
		}
		if add, ok := obj["_additional"].(map[string]any); ok {
			if d, ok := add["distance"].(float64); ok {
				m.Score = 1 - d
			}
		}
		out = append(out, m)
	}
	return out, nil
}

var _ Store = (*WeaviateStore)(nil)
