package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/driveflow/reservation-system/reservation-service/application"
	"github.com/driveflow/reservation-system/reservation-service/handlers"
	"github.com/driveflow/reservation-system/reservation-service/infrastructure"
	"github.com/driveflow/reservation-system/reservation-service/saga"
	sharedinfra "github.com/driveflow/reservation-system/shared/infrastructure"
	"github.com/driveflow/reservation-system/shared/telemetry"
	"github.com/driveflow/reservation-system/shared/workflow"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	// Logging
	Logger *slog.Logger

	// Database
	DB *sqlx.DB

	// Saga core
	Dispatcher   *saga.Dispatcher
	Poller       *saga.ConfirmationPoller
	Orchestrator *saga.Orchestrator

	// Workflow runtime
	Runtime       *workflow.Runtime
	InstanceStore *sharedinfra.PostgresInstanceStore

	// Use Cases
	StartReservation     *application.StartReservation
	GetReservationStatus *application.GetReservationStatus
	RaiseStepResult      *application.RaiseStepResult

	// HTTP Handlers
	ReservationHandlers *handlers.ReservationHandlers
	CallbackHandlers    *handlers.CallbackHandlers

	// Event Handlers
	ResponseQueueHandler *handlers.ResponseQueueHandler

	// Infrastructure
	EventPublisher  *sharedinfra.SNSPublisherAdapter
	EventSubscriber *sharedinfra.SQSSubscriberAdapter
	BillingClient   *infrastructure.HTTPBillingStatusClient

	// Telemetry
	Telemetry         *telemetry.Telemetry
	telemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil)).
		With("service", config.ServiceName)

	// Initialize telemetry
	tel, telShutdown, err := telemetry.InitTelemetry(ctx,
		telemetry.NewConfigForService(config.ServiceName, "1.0.0", config.Telemetry.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}
	deps.Telemetry = tel
	deps.telemetryShutdown = telShutdown

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	deps.DB = db
	deps.InstanceStore = sharedinfra.NewPostgresInstanceStore(db)

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.SNSTopicArn, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
	}
	deps.EventSubscriber = eventSubscriber

	deps.BillingClient = infrastructure.NewHTTPBillingStatusClient(
		config.Billing.BaseURL,
		time.Duration(config.Billing.TimeoutSeconds)*time.Second,
	)

	// Initialize saga core
	deps.Dispatcher = saga.NewDispatcher(eventPublisher, config.Saga.CallbackAddress, deps.Logger)
	deps.Poller = saga.NewConfirmationPoller(
		deps.BillingClient,
		config.Saga.ConfirmAttempts,
		time.Duration(config.Saga.ConfirmDelaySeconds)*time.Second,
		deps.Logger,
	)
	deps.Orchestrator = saga.NewOrchestrator(deps.Dispatcher, deps.Poller, saga.Config{
		WaitTimeout: time.Duration(config.Saga.WaitTimeoutSeconds) * time.Second,
	}, deps.Logger)

	// Initialize workflow runtime
	deps.Runtime = workflow.NewRuntime(deps.Orchestrator.Workflow(),
		workflow.WithSnapshotStore(deps.InstanceStore),
		workflow.WithLogger(deps.Logger),
	)

	// Initialize use cases
	deps.StartReservation = application.NewStartReservation(deps.Runtime, deps.Logger)
	deps.GetReservationStatus = application.NewGetReservationStatus(deps.Runtime)
	deps.RaiseStepResult = application.NewRaiseStepResult(deps.Runtime, deps.Logger)

	// Initialize handlers
	deps.ReservationHandlers = handlers.NewReservationHandlers(deps.StartReservation, deps.GetReservationStatus)
	deps.CallbackHandlers = handlers.NewCallbackHandlers(deps.RaiseStepResult)
	deps.ResponseQueueHandler = handlers.NewResponseQueueHandler(deps.RaiseStepResult, deps.Logger)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.Runtime != nil {
		d.Runtime.Shutdown()
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
	}

	if d.telemetryShutdown != nil {
		d.telemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
