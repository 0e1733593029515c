package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lernio/lernio/internal/config"
	"github.com/lernio/lernio/internal/event_bus"
	"github.com/lernio/lernio/internal/utils"
	"github.com/lernio/lernio/pkg/calendar_event"
	"github.com/lernio/lernio/pkg/calendar_sync"
	"github.com/lernio/lernio/pkg/course"
	"github.com/lernio/lernio/pkg/google"
	"github.com/lernio/lernio/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	UserRepo    *user.UserRepoImpl
	UserService user.Service
	UserHandler *user.Handler

	CourseRepo *course.RepositoryImpl

	GoogleAuth          *google.GoogleAuth
	GoogleClientFactory *google.ClientFactoryImpl
	GoogleService       google.Service
	GoogleHandler       *google.Handler

	CalendarEventRepo    *calendar_event.RepositoryImpl
	CalendarEventService *calendar_event.ServiceImpl
	CalendarEventHandler *calendar_event.Handler

	BindingRepo         *calendar_sync.BindingRepositoryImpl
	Resolver            *calendar_sync.Resolver
	Syncer              *calendar_sync.Syncer
	SyncOrchestrator    *calendar_sync.Orchestrator
	Pusher              *calendar_sync.Pusher
	DeletionPropagator  *calendar_sync.DeletionPropagator
	SyncScheduler       *calendar_sync.Scheduler
	CalendarSyncHandler *calendar_sync.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.UserRepo = user.NewUserRepo(db)
	deps.UserService = user.NewUserService(deps.UserRepo)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.CourseRepo = course.NewRepository(db)

	deps.GoogleAuth = google.NewGoogleAuth(google.NewTokenRepository(db), deps.UserRepo, cfg)
	deps.GoogleClientFactory = google.NewClientFactory(google.DefaultRetryConfig(cfg.Sync.MaxRetries))
	deps.GoogleService = google.NewService(deps.GoogleAuth, deps.GoogleClientFactory)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	deps.CalendarEventRepo = calendar_event.NewRepository(db)
	deps.CalendarEventService = calendar_event.NewService(deps.CalendarEventRepo, deps.EventBus)
	deps.CalendarEventHandler = calendar_event.NewHandler(deps.CalendarEventService)

	deps.BindingRepo = calendar_sync.NewBindingRepository(db)
	deps.Resolver = calendar_sync.NewResolver(deps.CalendarEventRepo, deps.CourseRepo, deps.UserRepo)
	deps.Syncer = calendar_sync.NewSyncer(deps.UserRepo, deps.GoogleAuth, deps.GoogleClientFactory, deps.BindingRepo, deps.Clock)
	deps.SyncOrchestrator = calendar_sync.NewOrchestrator(
		deps.Resolver,
		deps.Syncer,
		deps.UserRepo,
		deps.UserRepo,
		deps.BindingRepo,
		deps.Clock,
		calendar_sync.OrchestratorConfig{ChunkSize: cfg.Sync.ChunkSize, ChunkPause: cfg.Sync.ChunkPause},
	)
	deps.Pusher = calendar_sync.NewPusher(deps.SyncOrchestrator)
	deps.DeletionPropagator = calendar_sync.NewDeletionPropagator(deps.Syncer, deps.BindingRepo)
	calendar_sync.Subscribe(deps.EventBus, deps.Pusher, deps.DeletionPropagator)
	deps.SyncScheduler = calendar_sync.NewScheduler(deps.SyncOrchestrator, deps.UserRepo, cfg.Sync.Interval)
	deps.CalendarSyncHandler = calendar_sync.NewHandler(deps.SyncOrchestrator, deps.Resolver, cfg.Sync.RequestTimeout)

	return deps
}
