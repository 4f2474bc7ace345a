package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps uploaded personas on disk, one YAML file per version:
//
//	{dir}/{id}/{version}.yaml
//	{dir}/{id}/latest          current version
//	{dir}/.hash_index/{hash}   "id/version" of the upload with that hash
type FileStore struct {
	BaseDir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// on the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{BaseDir: dir}
}

func (s *FileStore) personaDir(id string) string { return filepath.Join(s.BaseDir, id) }

func (s *FileStore) versionFile(id, version string) string {
	return filepath.Join(s.personaDir(id), version+".yaml")
}

func (s *FileStore) hashFile(hash string) string {
	return filepath.Join(s.BaseDir, ".hash_index", hash)
}

// Save writes def and makes it the latest version. Re-saving an identical
// definition leaves the store untouched; a different one under a stored
// version fails with ErrVersionExists.
func (s *FileStore) Save(def *Definition) error {
	hash := def.Hash()
	if stored, err := s.GetByHash(hash); err == nil && stored != nil && stored.ID == def.ID {
		return nil
	}
	path := s.versionFile(def.ID, def.Version)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s@%s", ErrVersionExists, def.ID, def.Version)
	}

	data, err := Marshal(def)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.personaDir(def.ID), 0o755); err != nil {
		return fmt.Errorf("persona dir %s: %w", def.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s@%s: %w", def.ID, def.Version, err)
	}
	if err := os.WriteFile(filepath.Join(s.personaDir(def.ID), "latest"), []byte(def.Version), 0o644); err != nil {
		return fmt.Errorf("write latest %s: %w", def.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.hashFile(hash)), 0o755); err != nil {
		return fmt.Errorf("hash index: %w", err)
	}
	if err := os.WriteFile(s.hashFile(hash), []byte(def.ID+"/"+def.Version), 0o644); err != nil {
		return fmt.Errorf("hash index %s: %w", def.ID, err)
	}
	return nil
}

func (s *FileStore) Get(id string) (*Definition, error) {
	latest, err := os.ReadFile(filepath.Join(s.personaDir(id), "latest"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.GetVersion(id, strings.TrimSpace(string(latest)))
}

func (s *FileStore) GetVersion(id, version string) (*Definition, error) {
	path := s.versionFile(id, version)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, id, version)
	}
	return LoadFile(path)
}

// GetByHash returns nil, nil when no upload has that hash.
func (s *FileStore) GetByHash(hash string) (*Definition, error) {
	ref, err := os.ReadFile(s.hashFile(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hash index: %w", err)
	}
	id, version, ok := strings.Cut(string(ref), "/")
	if !ok || id == "" {
		return nil, nil
	}
	return s.GetVersion(id, version)
}

func (s *FileStore) ListVersions(id string) ([]string, error) {
	entries, err := os.ReadDir(s.personaDir(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	versions := make(map[string]bool, len(entries))
	for _, e := range entries {
		if v, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			versions[v] = true
		}
	}
	return sortedKeys(versions), nil
}

func (s *FileStore) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.BaseDir, err)
	}
	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids[e.Name()] = true
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return sortedKeys(ids), nil
}

var _ Store = (*FileStore)(nil)
