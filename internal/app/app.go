package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/chief-of-staff/internal/data/db"
	"github.com/yungbote/chief-of-staff/internal/jobs"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	scheduler *jobs.Scheduler
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clientset, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, cfg, reposet, clientset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, reposet, serviceset, clientset)
	router := wireRouter(handlerset)

	var lease jobs.Lease
	if clientset.Redis != nil {
		lease = jobs.NewRedisLease(log, clientset.Redis)
	} else {
		lease = jobs.NewNoopLease()
	}
	scheduler, err := jobs.NewScheduler(
		log, cfg.Jobs, lease,
		reposet.User,
		serviceset.Ingestion,
		serviceset.Briefing,
		serviceset.Preference,
		serviceset.Engagement,
	)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	return &App{
		Log:       log,
		DB:        theDB,
		Router:    router,
		Cfg:       cfg,
		Repos:     reposet,
		Clients:   clientset,
		Services:  serviceset,
		scheduler: scheduler,
	}, nil
}

func (a *App) Start() error {
	if a == nil || a.scheduler == nil {
		return nil
	}
	return a.scheduler.Start()
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Clients.Redis != nil {
		_ = a.Clients.Redis.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
