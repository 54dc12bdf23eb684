package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"tg_miniapp/internal/entities"
)

// ErrInvalidSlug is returned for client names that are unsafe as folder names.
var ErrInvalidSlug = errors.New("invalid client slug")

// DocumentStore keeps the catalog and config documents on disk, at the web
// root or in a per-client folder below ClientsDir.
type DocumentStore struct {
	root        string
	clientsDir  string
	catalogName string
	configName  string
}

type DocumentStoreConfig struct {
	Root        string
	ClientsDir  string
	CatalogFile string
	ConfigFile  string
}

func NewDocumentStore(cfg DocumentStoreConfig) *DocumentStore {
	return &DocumentStore{
		root:        cfg.Root,
		clientsDir:  cfg.ClientsDir,
		catalogName: cfg.CatalogFile,
		configName:  cfg.ConfigFile,
	}
}

// RelPath returns the slash separated path of a document relative to the root.
func (s *DocumentStore) RelPath(kind entities.DocumentKind, client string) (string, error) {
	name, err := s.fileName(kind)
	if err != nil {
		return "", err
	}
	if client == "" {
		return name, nil
	}
	if !entities.ValidSlug(client) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, client)
	}
	return path.Join(filepath.ToSlash(s.clientsDir), client, name), nil
}

// Save replaces the document with data. The file is written to a temporary
// name and renamed, so readers never see a partial document and a failed
// write leaves the previous one in place. Missing folders are created.
func (s *DocumentStore) Save(kind entities.DocumentKind, client string, data []byte) (string, error) {
	rel, err := s.RelPath(kind, client)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	if err := writeAtomic(full, data); err != nil {
		return "", err
	}
	return rel, nil
}

// CreateIfMissing writes data only when the document does not exist yet.
// It reports whether the file was created.
func (s *DocumentStore) CreateIfMissing(kind entities.DocumentKind, client string, data []byte) (string, bool, error) {
	rel, err := s.RelPath(kind, client)
	if err != nil {
		return "", false, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", false, fmt.Errorf("create folder: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return rel, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("create %s: %w", rel, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", false, fmt.Errorf("write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("close %s: %w", rel, err)
	}
	return rel, true, nil
}

func (s *DocumentStore) fileName(kind entities.DocumentKind) (string, error) {
	switch kind {
	case entities.DocumentCatalog:
		return s.catalogName, nil
	case entities.DocumentConfig:
		return s.configName, nil
	default:
		return "", fmt.Errorf("unknown document kind %q", kind)
	}
}

func writeAtomic(full string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(full), err)
	}
	return nil
}
