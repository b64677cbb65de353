package main

import (
	"net/http"

	"upkeep/account"
	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/pmplan"
	"upkeep/domain/workitem/partusage"
	"upkeep/journal"
	"upkeep/persistence"
	"upkeep/servehttp"
	"upkeep/session"
	"upkeep/sessions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Info("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB().AutoMigrate(&domain.WorkItem{}, &domain.PmPlan{},
		&journal.Record{}, &partusage.PartUsage{}, &account.User{}).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v", err)
	}

	if err := account.BootstrapSupervisor(); err != nil {
		logrus.Fatalf("bootstrap account failed %v", err)
	}

	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterUsersHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterWorkItemsRestAPI(engine, session.SimpleAuthFilter())
	servehttp.RegisterJournalRestAPI(engine, session.SimpleAuthFilter())
	servehttp.RegisterPartUsagesRestAPI(engine, session.SimpleAuthFilter())
	servehttp.RegisterPmPlansRestAPI(engine, session.SimpleAuthFilter())

	pmplan.StartCron()

	servehttp.StartHTTPServer(engine)
}
