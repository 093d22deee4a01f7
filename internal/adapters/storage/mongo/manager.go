package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

// Options holds the connection settings for the document store.
type Options struct {
	URI            string // e.g. "mongodb://localhost:27017"
	Database       string // default: "askmichael"
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

// Manager owns the single process-wide connection to MongoDB.
// Build one in the composition root and hand the database it returns to every store.
type Manager struct {
	opts Options

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewManager(opts Options) *Manager {
	if opts.Database == "" {
		opts.Database = "askmichael"
	}
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = 100
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Manager{opts: opts}
}

// Acquire returns the shared database handle, connecting on first use.
// A failed attempt is not memoized, so the caller may retry. Acquire never
// retries on its own.
func (m *Manager) Acquire(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}
	if m.opts.URI == "" {
		return nil, fmt.Errorf("%w: MONGODB_URI is not defined", domain.ErrConnection)
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(m.opts.URI).
		SetMaxPoolSize(m.opts.MaxPoolSize).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrConnection, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrConnection, err)
	}

	m.client = client
	m.db = client.Database(m.opts.Database)
	return m.db, nil
}

// Close disconnects the shared client. Safe to call when never connected.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	m.db = nil
	return err
}
