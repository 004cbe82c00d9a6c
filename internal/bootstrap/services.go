package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/UPI05/InsecMed/config"
	"github.com/UPI05/InsecMed/internal/adapters/inference"
	"github.com/UPI05/InsecMed/internal/adapters/jobrunner"
	"github.com/UPI05/InsecMed/internal/adapters/storage"
	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/observability/notify/pagerduty"
	"github.com/UPI05/InsecMed/internal/observability/notify/slack"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
	"github.com/UPI05/InsecMed/internal/service"
	"github.com/UPI05/InsecMed/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Dispatch      *service.DispatchService
	Records       *service.RecordService
	Sharing       *service.SharingService
	Patients      *service.PatientService
	Auth          *service.AuthService // nil unless the HTTP server is enabled
	Repos         *serviceRepositories
	Store         *storage.LocalStore
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// MetricsSink is nil when metrics are disabled.
	MetricsSink     statsd.Sink
	metricsClient   *statsd.Client
	FailureNotifier *failurenotifier.Service
}

// Close releases the metrics connection.
func (o ObservabilityContainer) Close() error {
	return o.metricsClient.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB        *sql.DB
	Jobs      *data.JobRepo
	Diagnoses *data.RecordRepo
	QA        *data.RecordRepo
	Patients  *data.PatientRepo
	Cache     *data.RedisCacheRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig, baseURL string) ObservabilityContainer {
	var obs ObservabilityContainer
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "insecmed",
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			obs.MetricsSink = client
			obs.metricsClient = client
		}
	}
	obs.FailureNotifier = buildFailureNotifier(logger, cfg.Notifications, baseURL)
	return obs
}

func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
	baseURL string,
) *failurenotifier.Service {
	opts := failurenotifier.Options{Logger: logger, Timeout: cfg.Timeout}
	if !cfg.Enabled {
		return failurenotifier.NewService(opts)
	}

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
			BaseURL:    baseURL,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			opts.Sinks = append(opts.Sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			opts.Sinks = append(opts.Sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	svc := failurenotifier.NewService(opts)
	logger.Info("failure notifications enabled", "sinks", svc.SinkNames())
	return svc
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, client redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		DB:        db,
		Jobs:      data.NewJobRepo(db, data.RepoConfig{Logger: logger}),
		Diagnoses: data.NewDiagnosisRepo(db, data.RecordRepoConfig{}),
		QA:        data.NewQARepo(db, data.RecordRepoConfig{}),
		Patients:  data.NewPatientRepo(db),
	}
	if client != nil {
		repos.Cache = data.NewRedisCacheRepo(client)
	}
	return repos
}

// cacheRepository keeps a nil *RedisCacheRepo from becoming a non-nil interface.
//
//nolint:ireturn // core helpers accept the port.
func (r *serviceRepositories) cacheRepository() core.CacheRepository {
	if r.Cache == nil {
		return nil
	}
	return r.Cache
}

// NewServices wires repositories, storage and the domain services shared by all modes.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(logger, cfg.Observability, cfg.HTTP.BaseURL)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)

	store, err := storage.NewLocalStore(storage.LocalStoreOptions{
		Dir:               cfg.Storage.UploadDir,
		AllowedExtensions: cfg.Storage.AllowedExtensions,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("upload storage: %w", err)
	}

	subjects := service.NewSubjectResolver(repos.Patients)
	cache := repos.cacheRepository()

	dispatch, err := service.NewDispatchService(service.DispatchServiceOptions{
		Jobs:      repos.Jobs,
		Diagnoses: repos.Diagnoses,
		QA:        repos.QA,
		Store:     store,
		Subjects:  subjects,
		Limiter:   core.NewSubmitRateLimiter(cache, cfg.HTTP.SubmitRateLimitPerMinute),
		Cache:     core.NewStatusCache(cache, cfg.Status.CacheTTL),
		Status:    cfg.Status,
		Logger:    logger,
		Metrics:   obs.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("dispatch service: %w", err)
	}

	records, err := service.NewRecordService(service.RecordServiceOptions{
		Diagnoses: repos.Diagnoses,
		QA:        repos.QA,
		Store:     store,
		Subjects:  subjects,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("record service: %w", err)
	}

	sharing, err := service.NewSharingService(service.SharingServiceOptions{
		Diagnoses: repos.Diagnoses,
		QA:        repos.QA,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("sharing service: %w", err)
	}

	patients, err := service.NewPatientService(service.PatientServiceOptions{Repo: repos.Patients})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("patient service: %w", err)
	}

	container := ServiceContainer{
		Dispatch:      dispatch,
		Records:       records,
		Sharing:       sharing,
		Patients:      patients,
		Repos:         repos,
		Store:         store,
		Observability: obs,
	}

	if cfg.IsHTTPServerEnabled() {
		auth, authErr := BuildAuthService(AuthConfig{
			Auth:        cfg.Auth,
			RedisClient: deps.RedisClient,
			Logger:      logger,
		})
		if authErr != nil {
			return ServiceContainer{}, authErr
		}
		container.Auth = auth
	}

	return container, nil
}

// buildPipeline wires the model clients for one job type.
//
//nolint:ireturn // the runner only needs the Pipeline port.
func buildPipeline(
	cfg *config.AppConfig,
	svcs ServiceContainer,
	jobType model.JobType,
	logger *slog.Logger,
) (jobrunner.Pipeline, error) {
	client, err := inference.NewClient(inference.ClientOptions{
		BaseURL:         cfg.Inference.BaseURL,
		Timeout:         cfg.Inference.Timeout,
		PredictionsExpr: cfg.Inference.PredictionsExpr,
		AnswerExpr:      cfg.Inference.AnswerExpr,
	})
	if err != nil {
		return nil, fmt.Errorf("inference client: %w", err)
	}

	opts := service.PipelineOptions{
		Store:     svcs.Store,
		Inference: client,
		Logger:    logger,
		Metrics:   svcs.Observability.MetricsSink,
	}

	switch jobType {
	case model.JobTypeDiagnosis:
		opts.Records = svcs.Repos.Diagnoses
		if cfg.Explain.Enabled {
			explain, explainErr := inference.NewExplainClient(inference.ExplainOptions{
				URL:     cfg.Explain.URL,
				Timeout: cfg.Explain.Timeout,
			})
			if explainErr != nil {
				return nil, fmt.Errorf("explain client: %w", explainErr)
			}
			opts.Explain = explain
		}
		return service.NewDiagnosisPipeline(opts)
	case model.JobTypeQA:
		opts.Records = svcs.Repos.QA
		return service.NewQAPipeline(opts)
	default:
		return nil, fmt.Errorf("no pipeline for job type %q", jobType)
	}
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService describes a startable component bound to one service mode.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	obs := cfg.Services.Observability
	runner := func(mode config.ServiceMode, jobType model.JobType, rc config.RunnerConfig) backgroundService {
		return backgroundService{
			mode: mode,
			name: string(mode),
			start: func(ctx context.Context) error {
				pipeline, err := buildPipeline(cfg.Config, cfg.Services, jobType, logger)
				if err != nil {
					return err
				}
				return RunJobRunner(ctx, JobRunnerConfig{
					DB:              cfg.DB,
					Logger:          logger,
					JobType:         jobType,
					Runner:          rc,
					Pipeline:        pipeline,
					Metrics:         obs.MetricsSink,
					FailureNotifier: obs.FailureNotifier,
				})
			},
		}
	}

	return []backgroundService{
		{
			mode: config.ServiceModeHTTP,
			name: "http server",
			start: func(ctx context.Context) error {
				server := NewHTTPServer(&HTTPServerConfig{
					Config:      cfg.Config,
					Services:    cfg.Services,
					DB:          cfg.DB,
					RedisClient: cfg.RedisClient,
					Logger:      logger,
				})
				return ServeHTTP(ctx, server, logger)
			},
		},
		runner(config.ServiceModeDiagnosisRunner, model.JobTypeDiagnosis, cfg.Config.DiagnosisRunner),
		runner(config.ServiceModeQARunner, model.JobTypeQA, cfg.Config.QARunner),
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					DB:      cfg.DB,
					Logger:  logger,
					Config:  cfg.Config.Reaper,
					Metrics: obs.MetricsSink,
				})
			},
		},
	}
}

// enabledBackgroundServices filters services down to the configured modes.
func enabledBackgroundServices(all []backgroundService, enabled map[config.ServiceMode]bool) []backgroundService {
	out := make([]backgroundService, 0, len(all))
	for _, svc := range all {
		if enabled[svc.mode] {
			out = append(out, svc)
		}
	}
	return out
}

// RunServicesWithShutdown starts all enabled services and blocks until a
// shutdown signal arrives or one of them fails. The first failure cancels the others.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range enabledBackgroundServices(buildBackgroundServices(cfg, logger), enabled) {
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", svc.name, "mode", svc.mode)
			err := svc.start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(gctx, "service failed", "service", svc.name, "error", err)
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.Info("service stopped", "service", svc.name)
			return nil
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		logger.Info("services stopped after shutdown signal")
	}
	return err
}
