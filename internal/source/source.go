// Package source resolves a configured model source into an orm.Base:
// a YAML file on disk, YAML objects in MinIO, or a live PostgreSQL or
// MySQL catalog.
package source

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/koustreak/rowmodel/internal/config"
	"github.com/koustreak/rowmodel/internal/database"
	"github.com/koustreak/rowmodel/internal/database/mysql"
	"github.com/koustreak/rowmodel/internal/database/postgres"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/filestore"
	"github.com/koustreak/rowmodel/internal/filestore/minio"
	"github.com/koustreak/rowmodel/internal/logger"
	"github.com/koustreak/rowmodel/internal/orm"
)

// DBOpener connects to a database.
type DBOpener func(ctx context.Context, cfg *database.Config) (database.DB, error)

// StoreOpener connects to an object store.
type StoreOpener func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error)

// Loader loads model declarations. The zero value is not usable; call New.
type Loader struct {
	openDB    DBOpener
	openStore StoreOpener
}

// Option customizes a Loader.
type Option func(*Loader)

// WithDBOpener replaces the PostgreSQL/MySQL connector.
func WithDBOpener(fn DBOpener) Option {
	return func(l *Loader) { l.openDB = fn }
}

// WithStoreOpener replaces the MinIO connector.
func WithStoreOpener(fn StoreOpener) Option {
	return func(l *Loader) { l.openStore = fn }
}

func New(opts ...Option) *Loader {
	l := &Loader{openDB: OpenDB, openStore: openMinIO}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OpenDB connects to the engine named by cfg.Driver.
func OpenDB(ctx context.Context, cfg *database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverPostgres:
		db, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case database.DriverMySQL:
		db, err := mysql.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported driver %q", cfg.Driver)
	}
}

func openMinIO(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	store, err := minio.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Load reads the models described by cfg.
func (l *Loader) Load(ctx context.Context, cfg config.SourceConfig) (*orm.Base, error) {
	log := logger.FromContext(ctx).With().Str("source", string(cfg.Kind)).Logger()

	var (
		base *orm.Base
		err  error
	)
	switch cfg.Kind {
	case config.SourceFile:
		base, err = loadFile(cfg.Path)
	case config.SourceMinIO:
		base, err = l.loadStore(ctx, cfg)
	case config.SourcePostgres, config.SourceMySQL:
		base, err = l.loadDatabase(ctx, cfg)
	default:
		err = errs.Newf(errs.ErrKindInvalidInput, "unknown source kind %q", cfg.Kind)
	}
	if err != nil {
		log.ErrorWith("failed to load models", err, nil)
		return nil, err
	}

	log.InfoWith("models loaded", map[string]any{"models": len(base.Models())})
	return base, nil
}

func loadFile(path string) (*orm.Base, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "opening "+path, err)
		}
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, "opening "+path, err)
	}
	defer f.Close()

	return orm.LoadYAML(f)
}

// loadStore reads one object, or every YAML object under the key when it
// ends in "/".
func (l *Loader) loadStore(ctx context.Context, cfg config.SourceConfig) (*orm.Base, error) {
	store, err := l.openStore(ctx, cfg.FileStore())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if !strings.HasSuffix(cfg.Key, "/") {
		return loadObject(ctx, store, cfg.Bucket, cfg.Key)
	}

	objects, err := store.ListObjects(ctx, cfg.Bucket, filestore.ListOptions{Prefix: cfg.Key, Recursive: true})
	if err != nil {
		return nil, err
	}

	base := orm.NewBase()
	for _, obj := range objects {
		if !obj.IsDeclaration() {
			continue
		}
		part, err := loadObject(ctx, store, cfg.Bucket, obj.Key)
		if err != nil {
			return nil, err
		}
		if err := base.Merge(part); err != nil {
			return nil, errs.Wrap(errs.KindOf(err), "merging "+obj.Key, err)
		}
	}
	return base, nil
}

func loadObject(ctx context.Context, store filestore.Store, bucket, key string) (*orm.Base, error) {
	data, err := filestore.ReadObject(ctx, store, bucket, key, 0)
	if err != nil {
		return nil, err
	}
	base, err := orm.LoadYAML(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.KindOf(err), "loading "+bucket+"/"+key, err)
	}
	return base, nil
}

func (l *Loader) loadDatabase(ctx context.Context, cfg config.SourceConfig) (*orm.Base, error) {
	db, err := l.openDB(ctx, cfg.Database())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return orm.Reflect(ctx, db, orm.ReflectOptions{
		Tables:     cfg.Tables,
		ModelNames: cfg.ModelNames,
	})
}
