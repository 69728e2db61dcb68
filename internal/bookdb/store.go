package bookdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/opds"
	bolt "go.etcd.io/bbolt"
)

var bucketBooks = []byte("books")

// Store is the bbolt-backed book database: records live in bolt as JSON,
// book payloads live as files under the payload directory.
type Store struct {
	db     *bolt.DB
	dir    string
	logger *slog.Logger
}

// NewStore opens (creating if needed) the database file and payload dir.
func NewStore(dbPath, payloadDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(payloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open book database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBooks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create books bucket: %w", err)
	}

	logger.Info("book database opened", "path", dbPath, "payload_dir", payloadDir)
	return &Store{db: db, dir: payloadDir, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(accountID, bookID uuid.UUID) []byte {
	return []byte(accountID.String() + "/" + bookID.String())
}

// OpenEntry opens the record for a book, creating it when absent.
func (s *Store) OpenEntry(accountID, bookID uuid.UUID, entry *opds.Entry) (Entry, error) {
	key := recordKey(accountID, bookID)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBooks)
		if b.Get(key) != nil {
			return nil
		}
		rec := &Record{
			AccountID: accountID,
			BookID:    bookID,
			Entry:     entry,
			Formats:   map[string]FormatInfo{},
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		return b.Put(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open book record: %w", err)
	}

	return &storeEntry{store: s, key: key, bookID: bookID}, nil
}

func (s *Store) getRecord(key []byte) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBooks).Get(key)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) updateRecord(key []byte, mutate func(*Record) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBooks)
		data := b.Get(key)
		if data == nil {
			return ErrNotFound
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		if err := mutate(&rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		out, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		return b.Put(key, out)
	})
}

type storeEntry struct {
	store  *Store
	key    []byte
	bookID uuid.UUID
}

func (e *storeEntry) Record() (*Record, error) {
	return e.store.getRecord(e.key)
}

func (e *storeEntry) WriteEntry(entry *opds.Entry) error {
	return e.store.updateRecord(e.key, func(rec *Record) error {
		rec.Entry = entry
		return nil
	})
}

func (e *storeEntry) FormatHandle(mime string) (FormatHandle, error) {
	base := opds.BaseType(mime)
	switch base {
	case opds.BaseType(opds.TypeEPUB), opds.BaseType(opds.TypePDF), opds.BaseType(opds.TypeAudiobookManifest):
		return &storeFormat{entry: e, mime: base}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchFormat, mime)
}

type storeFormat struct {
	entry *storeEntry
	mime  string
}

func (f *storeFormat) payloadPath(name string) (string, error) {
	dir := filepath.Join(f.entry.store.dir, f.entry.bookID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create book directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func (f *storeFormat) bookFileName() string {
	switch f.mime {
	case opds.BaseType(opds.TypeEPUB):
		return "book.epub"
	case opds.BaseType(opds.TypePDF):
		return "book.pdf"
	default:
		return "book.bin"
	}
}

func (f *storeFormat) writePayload(name string, r io.Reader) (string, error) {
	path, err := f.payloadPath(name)
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create payload file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write payload file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close payload file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to commit payload file: %w", err)
	}
	return path, nil
}

func (f *storeFormat) updateInfo(mutate func(*FormatInfo)) error {
	return f.entry.store.updateRecord(f.entry.key, func(rec *Record) error {
		if rec.Formats == nil {
			rec.Formats = map[string]FormatInfo{}
		}
		info := rec.Formats[f.mime]
		info.Type = f.mime
		mutate(&info)
		rec.Formats[f.mime] = info
		return nil
	})
}

func (f *storeFormat) WriteBook(r io.Reader) error {
	path, err := f.writePayload(f.bookFileName(), r)
	if err != nil {
		return err
	}
	return f.updateInfo(func(info *FormatInfo) { info.BookFile = path })
}

func (f *storeFormat) WriteAdobeRights(rights []byte) error {
	path, err := f.writePayload("rights.xml", bytes.NewReader(rights))
	if err != nil {
		return err
	}
	return f.updateInfo(func(info *FormatInfo) { info.RightsFile = path })
}

func (f *storeFormat) WriteAxisNowLicense(license, userKey []byte) error {
	licPath, err := f.writePayload("license.json", bytes.NewReader(license))
	if err != nil {
		return err
	}
	keyPath, err := f.writePayload("user_key.json", bytes.NewReader(userKey))
	if err != nil {
		return err
	}
	return f.updateInfo(func(info *FormatInfo) {
		info.LicenseFile = licPath
		info.UserKeyFile = keyPath
	})
}

func (f *storeFormat) WriteAudioManifest(manifest, fulfillment []byte) error {
	manPath, err := f.writePayload("manifest.json", bytes.NewReader(manifest))
	if err != nil {
		return err
	}
	var fulPath string
	if len(fulfillment) > 0 {
		fulPath, err = f.writePayload("fulfillment.bin", bytes.NewReader(fulfillment))
		if err != nil {
			return err
		}
	}
	return f.updateInfo(func(info *FormatInfo) {
		info.ManifestFile = manPath
		info.FulfillFile = fulPath
	})
}

// Records returns every persisted book record.
func (s *Store) Records() ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBooks).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
