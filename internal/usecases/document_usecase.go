package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"tg_miniapp/internal/entities"
	"tg_miniapp/internal/metrics"
	"tg_miniapp/internal/redact"
	"tg_miniapp/internal/repository"
)

// Client errors. Anything else returned by DocumentUsecase is a server error.
var (
	ErrInvalidJSON    = errors.New("invalid JSON")
	ErrInvalidCatalog = errors.New("catalog must be a JSON object with a \"products\" array")
	ErrInvalidConfig  = errors.New("config must be a JSON object")
	ErrInvalidClient  = errors.New("invalid client slug")
)

// DocumentStore persists documents. Implemented by repository.DocumentStore.
type DocumentStore interface {
	Save(kind entities.DocumentKind, client string, data []byte) (string, error)
	CreateIfMissing(kind entities.DocumentKind, client string, data []byte) (string, bool, error)
}

// DocumentMirror receives a copy of every saved document.
type DocumentMirror interface {
	Upsert(ctx context.Context, kind entities.DocumentKind, client string, body []byte) error
}

// ScaffoldedFile reports one file written by ScaffoldClient.
type ScaffoldedFile struct {
	Kind    entities.DocumentKind
	Path    string
	Created bool
}

type DocumentUsecase struct {
	store   DocumentStore
	mirror  DocumentMirror
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewDocumentUsecase wires the admin save operations. mirror and m may be nil.
func NewDocumentUsecase(store DocumentStore, mirror DocumentMirror, logger *slog.Logger, m *metrics.Metrics) *DocumentUsecase {
	return &DocumentUsecase{
		store:   store,
		mirror:  mirror,
		logger:  logger.With("component", "documents"),
		metrics: m,
	}
}

// SaveCatalog validates body as {"products":[...]} and replaces the catalog
// of client ("" for the shared one). An invalid body leaves the stored
// catalog untouched.
func (u *DocumentUsecase) SaveCatalog(ctx context.Context, client string, body []byte) (entities.SaveResult, error) {
	res, err := u.save(ctx, entities.DocumentCatalog, client, body, func(v redact.Value) (int, error) {
		if v.Kind != redact.KindMapping {
			return 0, ErrInvalidCatalog
		}
		products, ok := v.Get("products")
		if !ok || products.Kind != redact.KindSequence {
			return 0, ErrInvalidCatalog
		}
		return len(products.Items), nil
	})
	u.metrics.ObserveDocumentSaved(string(entities.DocumentCatalog), err)
	return res, err
}

// SaveConfig replaces the mini-app configuration of client. The client
// folder is created when it does not exist.
func (u *DocumentUsecase) SaveConfig(ctx context.Context, client string, body []byte) (entities.SaveResult, error) {
	res, err := u.save(ctx, entities.DocumentConfig, client, body, func(v redact.Value) (int, error) {
		if v.Kind != redact.KindMapping {
			return 0, ErrInvalidConfig
		}
		return 0, nil
	})
	u.metrics.ObserveDocumentSaved(string(entities.DocumentConfig), err)
	return res, err
}

func (u *DocumentUsecase) save(ctx context.Context, kind entities.DocumentKind, client string, body []byte, validate func(redact.Value) (int, error)) (entities.SaveResult, error) {
	if client != "" && !entities.ValidSlug(client) {
		return entities.SaveResult{}, fmt.Errorf("%w: %q", ErrInvalidClient, client)
	}

	v, err := redact.Parse(body)
	if err != nil {
		return entities.SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	count, err := validate(v)
	if err != nil {
		return entities.SaveResult{}, err
	}

	pretty, err := v.Pretty()
	if err != nil {
		return entities.SaveResult{}, fmt.Errorf("format %s: %w", kind, err)
	}
	path, err := u.store.Save(kind, client, []byte(pretty+"\n"))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSlug) {
			return entities.SaveResult{}, fmt.Errorf("%w: %q", ErrInvalidClient, client)
		}
		return entities.SaveResult{}, fmt.Errorf("save %s: %w", kind, err)
	}
	u.logger.InfoContext(ctx, "document saved", "kind", kind, "client", client, "path", path)

	u.mirrorDocument(ctx, kind, client, v)

	return entities.SaveResult{Kind: kind, Client: client, Path: path, Count: count}, nil
}

func (u *DocumentUsecase) mirrorDocument(ctx context.Context, kind entities.DocumentKind, client string, v redact.Value) {
	if u.mirror == nil {
		return
	}
	compact, err := v.MarshalJSON()
	if err != nil {
		u.logger.WarnContext(ctx, "mirror encode failed", "kind", kind, "error", err)
		return
	}
	if err := u.mirror.Upsert(ctx, kind, client, compact); err != nil {
		u.logger.WarnContext(ctx, "mirror upsert failed", "kind", kind, "client", client, "error", err)
	}
}

// ScaffoldClient creates clients/<slug>/ with a base config and an empty
// catalog. Existing files are never overwritten. slug is sanitized first and
// the sanitized form is returned.
func (u *DocumentUsecase) ScaffoldClient(raw string) (string, []ScaffoldedFile, error) {
	slug := entities.SanitizeSlug(raw)
	if slug == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidClient, raw)
	}

	docs := []struct {
		kind entities.DocumentKind
		body any
	}{
		{entities.DocumentConfig, entities.BaseClientConfig()},
		{entities.DocumentCatalog, entities.BaseCatalog()},
	}

	files := make([]ScaffoldedFile, 0, len(docs))
	for _, d := range docs {
		data, err := json.MarshalIndent(d.body, "", "  ")
		if err != nil {
			return slug, files, fmt.Errorf("encode %s: %w", d.kind, err)
		}
		path, created, err := u.store.CreateIfMissing(d.kind, slug, append(data, '\n'))
		if err != nil {
			return slug, files, fmt.Errorf("scaffold %s: %w", d.kind, err)
		}
		files = append(files, ScaffoldedFile{Kind: d.kind, Path: path, Created: created})
	}
	u.logger.Info("client scaffolded", "client", slug)
	return slug, files, nil
}
