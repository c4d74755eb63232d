package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Veysel440/go-etracker/internal/service"
)

type Config struct {
	URI                string
	DB                 string
	Collection         string
	AuditCollection    string
	AuditRetentionDays int64
	EnsureIndexes      bool
}

// Store owns the client and the repositories built on it.
type Store struct {
	client    *mongo.Client
	cfg       Config
	Inventory *InventoryRepo
	Audit     *AuditRepo
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	cl, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", service.ErrStorage, err)
	}
	db := cl.Database(cfg.DB)
	audit := db.Collection(cfg.AuditCollection)
	if cfg.EnsureIndexes {
		if err := ensureIndexes(ctx, audit, cfg.AuditRetentionDays); err != nil {
			_ = cl.Disconnect(ctx)
			return nil, fmt.Errorf("%w: indexes: %w", service.ErrStorage, err)
		}
	}
	return &Store{
		client:    cl,
		cfg:       cfg,
		Inventory: &InventoryRepo{col: db.Collection(cfg.Collection)},
		Audit:     &AuditRepo{col: audit},
	}, nil
}

// Ping checks connectivity against the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", service.ErrStorage, err)
	}
	return nil
}

func (s *Store) Namespace() string { return s.cfg.DB + "." + s.cfg.Collection }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", service.ErrStorage, err)
}
