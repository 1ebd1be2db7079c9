package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/relabs-tech/carlot/core/access"
	"github.com/relabs-tech/carlot/core/api"
	"github.com/relabs-tech/carlot/core/config"
	"github.com/relabs-tech/carlot/core/csql"
	"github.com/relabs-tech/carlot/core/kss"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/notify"
	"github.com/relabs-tech/carlot/core/store"
	"github.com/relabs-tech/carlot/core/store/memory"
	"github.com/relabs-tech/carlot/core/store/mongo"
	"github.com/relabs-tech/carlot/core/store/postgres"
)

// service is the wired backend: store, image storage, notifier and API on one router
type service struct {
	store    store.Store
	notifier notify.Notifier
	router   *mux.Router
	api      *api.API
}

// openStore opens the storage backend selected by cfg
func openStore(ctx context.Context, cfg *config.Service) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Default().Warnln("using the memory store, all data is lost on exit")
		return memory.New(), nil
	case config.StorePostgres:
		db, err := csql.OpenWithSchema(cfg.PostgresDataSource(), cfg.PostgresSchema)
		if err != nil {
			return nil, err
		}
		s, err := postgres.New(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case config.StoreMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store '%s'", cfg.Store)
}

// secret returns value, or a random secret if value is empty
func secret(name, value string) string {
	if value != "" {
		return value
	}
	logger.Default().Warnf("%s is not set, using a random secret. Tokens will not survive a restart", name)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func kssConfiguration(cfg *config.Service) kss.Configuration {
	switch kss.DriverType(cfg.KSSDriver) {
	case kss.DriverTypeAWSS3:
		return kss.Configuration{
			DriverType: kss.DriverTypeAWSS3,
			S3Configuration: &kss.S3Configuration{
				AccessID:      cfg.S3AccessID,
				AccessKey:     cfg.S3AccessKey,
				AWSBucketName: cfg.S3Bucket,
				AWSRegion:     cfg.S3Region,
				KeyPrefix:     cfg.S3KeyPrefix,
				Endpoint:      cfg.S3Endpoint,
			},
		}
	default:
		return kss.Configuration{
			DriverType: kss.DriverType(cfg.KSSDriver),
			LocalConfiguration: &kss.LocalConfiguration{
				BasePath:      path.Clean(cfg.KSSLocalPath),
				PrivateKeyPEM: cfg.KSSPrivateKey,
			},
		}
	}
}

// newService wires all components from cfg. The caller must call close.
func newService(ctx context.Context, cfg *config.Service) (*service, error) {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot open store: %w", err)
	}
	if cfg.AdminUsername != "" {
		if err := access.EnsureAdmin(ctx, s, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			s.Close()
			return nil, fmt.Errorf("cannot create admin %s: %w", cfg.AdminUsername, err)
		}
	}

	router := mux.NewRouter()
	driver, err := kss.New(router, kssConfiguration(cfg), cfg.PublicURL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("cannot create image storage: %w", err)
	}

	notifier, err := notify.New(ctx, notify.Configuration{
		Type:         cfg.Notifier,
		KafkaBrokers: cfg.Brokers(),
		KafkaTopic:   cfg.KafkaTopic,
		SQSQueueURL:  cfg.SQSQueueURL,
		AWSRegion:    cfg.S3Region,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("cannot create notifier: %w", err)
	}

	issuer := access.NewTokenIssuer(
		secret("JWT_SECRET", cfg.JWTSecret),
		secret("JWT_REFRESH_SECRET", cfg.JWTRefreshSecret),
		cfg.JWTIssuer)
	issuer.AccessTTL = cfg.AccessTokenTTL
	issuer.RefreshTTL = cfg.RefreshTokenTTL

	a := api.New(&api.Builder{
		Store:         s,
		Router:        router,
		Issuer:        issuer,
		KSS:           driver,
		Notifier:      notifier,
		InquiryRate:   rate.Limit(cfg.InquiryRate),
		InquiryBurst:  cfg.InquiryBurst,
		SecureCookies: strings.HasPrefix(cfg.PublicURL, "https:"),
		TrustProxy:    cfg.TrustProxy,
	})

	return &service{
		store:    s,
		notifier: notifier,
		router:   router,
		api:      a,
	}, nil
}

func (s *service) close() {
	if err := s.notifier.Close(); err != nil {
		logger.Default().WithError(err).Errorln("Error 4801: cannot close notifier")
	}
	if err := s.store.Close(); err != nil {
		logger.Default().WithError(err).Errorln("Error 4802: cannot close store")
	}
}
