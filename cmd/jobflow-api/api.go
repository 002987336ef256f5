// Package main provides the Jobflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/sfgfab/jobflow/pkg/approval"
	"github.com/sfgfab/jobflow/pkg/directory"
	"github.com/sfgfab/jobflow/pkg/eventbus"
	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/sfgfab/jobflow/pkg/navigation"
	"github.com/sfgfab/jobflow/pkg/notify"
	"github.com/sfgfab/jobflow/pkg/otelhelper"
	"github.com/sfgfab/jobflow/pkg/persistence"
	"github.com/sfgfab/jobflow/pkg/rules"
	"github.com/sfgfab/jobflow/pkg/web"
	"github.com/sfgfab/jobflow/pkg/workflow"
)

// Config carries the file-based configuration inputs for the API server.
type Config struct {
	QuoteRulesPath     string
	ApproversPath      string
	EscalationSchedule string
	EscalationWindow   time.Duration
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	sink        notify.Sink
	validate    *validator.Validate

	catalog         *models.Catalog
	riskModel       *rules.QuoteRiskModel
	orchestrator    *workflow.Orchestrator
	approvalService *approval.Service
	escalator       *approval.Escalator

	escalationSchedule string
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	sink notify.Sink,
	config Config,
) (*API, error) {
	riskModel, err := loadRiskModel(config.QuoteRulesPath)
	if err != nil {
		return nil, err
	}

	dir, err := loadDirectory(config.ApproversPath)
	if err != nil {
		return nil, err
	}

	catalog := models.DefaultCatalog()
	workflows := rules.DefaultWorkflowSet()
	gate := approval.NewGate(riskModel)

	committer := workflow.NewCommitter(p.Jobs(), catalog, eventBus, sink, logger)
	orchestrator := workflow.NewOrchestrator(
		p,
		navigation.NewValidator(catalog, navigation.Policy{}),
		gate,
		workflows,
		dir,
		committer,
		newTracer(logger),
		logger,
	)
	approvalService := approval.NewService(p.Approvals(), dir, gate, workflows, eventBus, logger)
	escalator := approval.NewEscalator(p.Approvals(), sink, eventBus, config.EscalationWindow, logger)

	return &API{
		logger:             logger,
		persistence:        p,
		eventBus:           eventBus,
		sink:               sink,
		validate:           validator.New(validator.WithRequiredStructEnabled()),
		catalog:            catalog,
		riskModel:          riskModel,
		orchestrator:       orchestrator,
		approvalService:    approvalService,
		escalator:          escalator,
		escalationSchedule: config.EscalationSchedule,
	}, nil
}

func loadRiskModel(path string) (*rules.QuoteRiskModel, error) {
	if path == "" {
		return rules.DefaultQuoteRiskModel(), nil
	}

	return rules.LoadQuoteRiskModel(path)
}

func loadDirectory(path string) (directory.Directory, error) {
	if path == "" {
		return directory.NewStaticDirectory(nil)
	}

	return directory.LoadDirectory(path)
}

// newTracer builds the OTLP tracer when an exporter endpoint is configured;
// without one the orchestrator falls back to its no-op tracer.
func newTracer(logger *slog.Logger) trace.Tracer {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return nil
	}

	tracer, err := otelhelper.NewTracer(context.Background(), "jobflow-api")
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", "error", err)

		return nil
	}

	return tracer
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.orchestrator,
		a.approvalService,
		a.riskModel,
		a.catalog,
		a.persistence,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Jobflow API")
	})

	jobs := app.Group("/jobs")
	jobs.Post("/", handlers.CreateJob)
	jobs.Get("/:id", handlers.GetJob)
	jobs.Post("/:id/navigate", handlers.NavigateJob)
	jobs.Get("/:id/navigations", handlers.GetNavigationHistory)

	approvals := app.Group("/approvals")
	approvals.Post("/", handlers.CreateApproval)
	approvals.Get("/", handlers.ListApprovals)
	approvals.Get("/:id", handlers.GetApproval)
	approvals.Post("/:id/approve", handlers.ApproveApproval)
	approvals.Post("/:id/reject", handlers.RejectApproval)

	quotes := app.Group("/quote-types")
	quotes.Get("/", handlers.GetQuoteTypes)
	quotes.Post("/calculate-markup", handlers.CalculateMarkup)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) StartEscalator(ctx context.Context) error {
	return a.escalator.Start(ctx, a.escalationSchedule)
}

func (a *API) StopEscalator() {
	a.escalator.Stop()
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
