package clientstate

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
)

// FileStore persists the state document to disk so tokens and report drafts
// survive gateway restarts. The document is a single JSON object written as
// a snappy-framed stream; writes go through a temp file and rename.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileStore opens or creates the state file at path.
func NewFileStore(path string) (*FileStore, apperrors.Error) {
	if path == "" {
		return nil, ErrStateError.Msg("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, ErrStateError.MsgErr("unable to create state directory", err)
	}

	s := &FileStore{
		path:   path,
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (f *FileStore) load() apperrors.Error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ErrStateError.MsgErr("unable to read state file", err)
	}

	decoded, err := io.ReadAll(snappy.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return ErrStateError.MsgErr("unable to decompress state file", err)
	}
	if err := json.Unmarshal(decoded, &f.values); err != nil {
		return ErrStateError.MsgErr("corrupt state file", err)
	}
	return nil
}

func (f *FileStore) flush() apperrors.Error {
	raw, err := json.Marshal(f.values)
	if err != nil {
		return ErrStateError.MsgErr("unable to encode state", err)
	}

	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return ErrStateError.MsgErr("unable to compress state", err)
	}
	if err := w.Close(); err != nil {
		return ErrStateError.MsgErr("unable to compress state", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return ErrStateError.MsgErr("unable to write state file", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return ErrStateError.MsgErr("unable to replace state file", err)
	}
	return nil
}

func (f *FileStore) Get(key string) (string, apperrors.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (f *FileStore) Set(key string, value string) apperrors.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f.flush()
}

func (f *FileStore) Delete(key string) apperrors.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return f.flush()
}

func (f *FileStore) Clear() apperrors.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[string]string)
	return f.flush()
}
