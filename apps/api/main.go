package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/kahero/ratiba/apps/api/echo"
	"github.com/kahero/ratiba/core"
	"github.com/kahero/ratiba/core/plan"
	"github.com/kahero/ratiba/core/user"
	emailsvc "github.com/kahero/ratiba/services/email"
	feedsvc "github.com/kahero/ratiba/services/feed"
	logsvc "github.com/kahero/ratiba/services/logger"
	"github.com/kahero/ratiba/storage/database"
	sqlxrepos "github.com/kahero/ratiba/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	sqlDB, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = sqlDB.Close() }()
	db := sqlx.NewDb(sqlDB, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))

	identity := echoapi.NewSessionIdentity()
	cache := plan.NewCache(sqlxrepos.NewPlanStore(db), identity, logger)
	roster := sqlxrepos.NewRoster(db)
	syncer := plan.NewSynchronizer(roster, feedsvc.NewHTTPService(conf), mailSvc, logger, conf)
	planSvc := plan.NewService(cache, sqlxrepos.NewDocumentOverlay(db), syncer, logger)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:  conf.ServerAddress(),
		Logger:   logger,
		UserSvc:  usrSvc,
		PlanSvc:  planSvc,
		Identity: identity,
		Shutdown: func() { shutdown <- syscall.SIGTERM },
	})

	go app.Start()

	<-shutdown
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("stopping server: %v", err), err)
	}
}
