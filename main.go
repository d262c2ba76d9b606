package main

import (
	"campflow/account"
	"campflow/avatar"
	"campflow/bizerror"
	"campflow/client/es"
	"campflow/client/s3"
	"campflow/domain"
	"campflow/indices"
	"campflow/indices/search"
	"campflow/infra/tracing"
	"campflow/notification"
	"campflow/persistence"
	"campflow/servehttp"
	"campflow/session"
	"campflow/sessions"
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database conneciton failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(context.Background()).AutoMigrate(
		&domain.Workflow{}, &domain.WorkflowStep{},
		&domain.ApprovalRequest{}, &domain.ApprovalAction{},
		&notification.Record{}, &account.User{}).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	if err := account.BootstrapAdminAccount(ds.GormDB(context.Background())); err != nil {
		log.Fatalf("bootstrap admin account failed %v\n", err)
	}

	tracerCloser, err := tracing.Bootstrap()
	if err != nil {
		log.Fatalf("tracing bootstrap failed %v\n", err)
	}
	defer tracerCloser.Close()

	s3.Bootstrap()
	es.CreateClientFromEnv()

	notification.Handlers = append(notification.Handlers, indices.IndexRequestNotificationHandle)
	notification.StartCron()
	indices.StartCron()

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "campflow")
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterSessionHandler(engine, session.SimpleAuthFilter())

	account.RegisterUsersRestAPI(engine, session.SimpleAuthFilter())
	avatar.RegisterAvatarAPI(engine, session.SimpleAuthFilter())

	servehttp.RegisterWorkflowHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterApprovalHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterNotificationHandler(engine, session.SimpleAuthFilter())

	indices.RegisterIndicesRestAPI(engine, session.SimpleAuthFilter())
	search.RegisterSearchRestAPI(engine, session.SimpleAuthFilter())

	servehttp.StartHTTPServer(engine)
}
