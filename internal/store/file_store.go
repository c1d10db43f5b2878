package store

import (
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"sparkd/internal/providers"
	"sparkd/internal/structures"
)

const snapshotVersion = 2

// snapshotV2 is the on-disk envelope with an explicit version field.
// V1 files were a bare key→value map without envelope or compression.
type snapshotV2 struct {
	Version int                        `json:"version"`
	Records map[string]json.RawMessage `json:"records"`
}

// FileStore keeps all records in memory and persists them as a single
// zstd-compressed snapshot file, written atomically via tmp+rename.
type FileStore struct {
	mu         sync.Mutex
	records    map[string]json.RawMessage
	path       string
	compressor CompressorInterface
	logger     providers.Logger
}

func NewFileStore(conf *structures.Config, compressor CompressorInterface, logger providers.Logger) *FileStore {
	return &FileStore{
		records:    make(map[string]json.RawMessage),
		path:       conf.Persistence.FilePath,
		compressor: compressor,
		logger:     logger,
	}
}

func (f *FileStore) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	val, ok := f.records[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (f *FileStore) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	f.records[key] = stored
	return nil
}

func (f *FileStore) Update(key string, fn func(current []byte) ([]byte, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var current []byte
	if val, ok := f.records[key]; ok {
		current = make([]byte, len(val))
		copy(current, val)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	f.records[key] = next
	return nil
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.records, key)
	return nil
}

func (f *FileStore) Restore() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressed, err := f.compressor.Decompress(data)
	if err != nil {
		// V1 files were written uncompressed.
		decompressed = data
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var snapshot snapshotV2
	if err := json.Unmarshal(decompressed, &snapshot); err == nil && snapshot.Version >= snapshotVersion && snapshot.Records != nil {
		f.records = snapshot.Records
		return nil
	}

	f.logger.Warnf(providers.TypeApp, "Inconsistent store file found, try to migrate from old data format")
	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(decompressed, &legacy); err != nil || legacy == nil {
		f.logger.Warnf(providers.TypeApp, "Migration failed")
		return err
	}
	f.logger.Warnf(providers.TypeApp, "Migration from v1 format successful")
	f.records = legacy
	return nil
}

func (f *FileStore) Persist() error {
	f.mu.Lock()
	snapshot := snapshotV2{
		Version: snapshotVersion,
		Records: make(map[string]json.RawMessage, len(f.records)),
	}
	for k, v := range f.records {
		snapshot.Records[k] = v
	}
	f.mu.Unlock()

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := f.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, f.path)
}

func (f *FileStore) Close() error {
	f.compressor.Close()
	return nil
}
