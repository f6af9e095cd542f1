package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spotify-relay-go/logcolors"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketName      = "credentials"
	refreshTokenKey = "refresh_token"
)

// BoltStore persists the refresh token in a BoltDB file and mirrors it in memory
type BoltStore struct {
	db     *bolt.DB
	dbPath string
	mu     sync.RWMutex
	token  string
}

// NewBoltStore opens (or creates) the database at dbPath.
// A token already on disk wins over seed; seed is written when the file holds none.
func NewBoltStore(dbPath string, seed string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create token store directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credentials bucket: %w", err)
	}

	bs := &BoltStore{db: db, dbPath: dbPath}

	stored, err := bs.load()
	if err != nil {
		db.Close()
		return nil, err
	}

	switch {
	case stored != "":
		bs.token = stored
		log.Infof("%s Loaded refresh token from %s", logcolors.LogTokenStore, dbPath)
	case seed != "":
		if err := bs.SetRefreshToken(context.Background(), seed); err != nil {
			db.Close()
			return nil, err
		}
		log.Infof("%s Seeded %s with refresh token from environment", logcolors.LogTokenStore, dbPath)
	default:
		log.Infof("%s No refresh token stored at %s", logcolors.LogTokenStore, dbPath)
	}

	return bs, nil
}

func (bs *BoltStore) load() (string, error) {
	var token string
	err := bs.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		token = string(b.Get([]byte(refreshTokenKey)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	return token, nil
}

func (bs *BoltStore) RefreshToken(ctx context.Context) (string, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.token, nil
}

// SetRefreshToken writes the token to disk before updating memory
func (bs *BoltStore) SetRefreshToken(ctx context.Context, token string) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	err := bs.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(refreshTokenKey), []byte(token))
	})
	if err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}

	bs.token = token
	return nil
}

// Close closes the database connection
func (bs *BoltStore) Close() error {
	if bs.db != nil {
		return bs.db.Close()
	}
	return nil
}
