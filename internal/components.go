package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/crm"
	"github.com/starford/flipdesk/internal/documents"
	"github.com/starford/flipdesk/internal/events"
	"github.com/starford/flipdesk/internal/leadimport"
	"github.com/starford/flipdesk/internal/notify"
	"github.com/starford/flipdesk/internal/search"
	"github.com/starford/flipdesk/internal/sse"
	"github.com/starford/flipdesk/internal/storage"
	"github.com/starford/flipdesk/internal/store"
)

// components is the wired object graph shared by every command.
type components struct {
	db        *store.DB
	broker    *sse.Broker
	publisher events.Publisher
	redis     *redis.Client
	crm       *crm.Service
	search    *search.Aggregator
	worker    *conversion.Worker
	importer  *leadimport.Importer
	documents *documents.Store
}

// setup opens the store and builds every service from cfg. The caller must
// call close.
func setup(ctx context.Context, cfg *Config, logger *slog.Logger) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.close(logger)
		}
	}()

	if cfg.Database.Driver == store.DriverSQLite {
		dbPath, _, _ := strings.Cut(cfg.Database.DSN, "?")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	c.db, err = store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	c.publisher, err = newPublisher(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("init events: %w", err)
	}

	c.broker = sse.NewBroker(2 * time.Second)

	c.crm = crm.NewService(c.db, func(ctx context.Context, entity, action string, id int64) {
		c.broker.PublishChange(sse.Change{Entity: entity, Action: action, ID: id})
		events.PublishLogged(ctx, c.publisher, logger, events.New(entity+"."+action, id, nil))
	})

	c.search = search.New(c.db, search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit))

	workerOpts := []conversion.Option{
		conversion.WithInterval(cfg.Worker.Interval),
		conversion.WithRunTimeout(cfg.Worker.RunTimeout),
		conversion.WithPushdown(cfg.Worker.Pushdown),
		conversion.WithLogger(logger),
		conversion.WithListener(func(_ context.Context, r conversion.Report) {
			for _, conv := range r.Conversions {
				c.broker.PublishChange(sse.Change{
					Entity:     crm.EntityLead,
					Action:     "converted",
					ID:         conv.LeadID,
					PropertyID: conv.PropertyID,
				})
			}
		}),
		conversion.WithListener(events.ConversionListener(c.publisher, logger)),
	}
	if cfg.Mail.Enabled {
		m := cfg.Mail
		mailer := notify.NewMailer(m.Host, m.Port, m.User, m.Password, m.From, m.To, logger)
		workerOpts = append(workerOpts, conversion.WithListener(mailer.Listener()))
	}
	if cfg.Worker.Lease.Enabled {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		workerOpts = append(workerOpts, conversion.WithLocker(
			conversion.NewRedisLease(c.redis, cfg.Worker.Lease.Key, cfg.Worker.Lease.TTL)))
	}
	c.worker = conversion.New(c.db, workerOpts...)

	docsFS, err := storage.EnsureFS(cfg.Documents.Path)
	if err != nil {
		return nil, fmt.Errorf("init documents: %w", err)
	}
	c.documents = documents.NewStore(docsFS, c.crm)

	var inbox storage.Provider
	if cfg.Import.Enabled {
		fs, err := storage.EnsureFS(cfg.Import.Dir)
		if err != nil {
			return nil, fmt.Errorf("init import inbox: %w", err)
		}
		inbox = fs
	}
	c.importer = leadimport.New(c.db, inbox, logger,
		leadimport.WithArchive(cfg.Import.Archive),
		leadimport.WithCallback(func(ctx context.Context, r leadimport.Result) {
			for _, id := range r.LeadIDs {
				c.broker.PublishChange(sse.Change{Entity: crm.EntityLead, Action: crm.ActionCreated, ID: id})
				events.PublishLogged(ctx, c.publisher, logger,
					events.New(crm.EntityLead+"."+crm.ActionCreated, id, map[string]string{"source": r.Path}))
			}
		}),
	)

	return c, nil
}

// newPublisher selects the domain event transport.
func newPublisher(cfg EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case EventsDriverRabbitMQ:
		p, err := events.DialRabbitMQ(cfg.URL, cfg.Exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	case EventsDriverKafka:
		return events.NewKafka(cfg.Brokers, cfg.Topic), nil
	case EventsDriverNone, "":
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

func (c *components) close(logger *slog.Logger) {
	var errs []error
	if c.broker != nil {
		c.broker.Close()
	}
	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("shutdown cleanup failed", slog.String("error", err.Error()))
	}
}
