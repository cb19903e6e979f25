package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/inferia-ai/inferia/cmd/inferiad/handlers"
	configs "github.com/inferia-ai/inferia/pkg/configs/control"
	"github.com/inferia-ai/inferia/pkg/conn/providers"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	kpg "github.com/inferia-ai/inferia/pkg/domain/inferia/db/postgres"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/utils/echoutil"
	"github.com/inferia-ai/inferia/pkg/utils/filewatch"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func main() {
	logger := log.Default()

	configPath := flag.String(
		"config", os.Getenv("INFERIA_CONTROL_CONFIG"), "path to config file",
	)
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	conf, err := configs.LoadControlConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}

	ctx := context.Background()

	{
		// watch config. An edit shuts the server down so the supervisor
		// restarts it onto the new file.
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		context.AfterFunc(wctx, func() {
			log.Println("config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by config update: %s", err)
			}
		})
		ctx = wctx
	}

	dbOptions := []kpg.Option{}
	if g := conf.Gateway(); g != "" {
		dbOptions = append(dbOptions, kpg.WithGatewayDatabase(g))
	}
	database := try.To(kpg.New(ctx, conf.Database(), dbOptions...)).OrFatal(logger)
	defer database.Close()

	eventRedis := goredis.NewClient(&goredis.Options{
		Addr: conf.Events().Redis(),
	})
	defer eventRedis.Close()

	eng := engine.New(
		engine.Config{
			ProvisionTimeout:    conf.Worker().ProvisionTimeout(),
			DeprovisionAttempts: conf.Worker().DeprovisionAttempts(),
			DeprovisionBackoff:  conf.Worker().DeprovisionBackoff(),
		},
		providers.Build(ctx, logger, conf.Providers())...,
	)

	ctrl := controller.New(
		database.Deployment(), database.Registry(), database.Gateway(), logger,
	)

	// handlers
	{
		e.POST("/api/pools/", handlers.PoolRegisterHandler(database.Pool()))
		e.GET("/api/pools/", handlers.FindPoolHandler(database.Pool()))
		e.POST(
			"/api/pools/:poolId/discovery/",
			handlers.PoolDiscoveryHandler(database.Pool(), eng, "poolId"),
		)
	}

	{
		e.POST("/api/models/", handlers.ModelRegisterHandler(database.Registry()))
		e.GET("/api/models/", handlers.FindModelHandler(database.Registry()))
		e.GET("/api/models/:name/", handlers.GetModelHandler(database.Registry(), "name"))
	}

	{
		e.POST(
			"/api/deployments/",
			handlers.DeploymentCreateHandler(ctrl, database.Deployment()),
		)
		e.GET("/api/deployments/", handlers.FindDeploymentHandler(database.Deployment()))
		e.GET(
			"/api/deployments/:deploymentId/",
			handlers.GetDeploymentHandler(database.Deployment(), "deploymentId"),
		)
		e.DELETE(
			"/api/deployments/:deploymentId/",
			handlers.DeleteDeploymentHandler(ctrl, "deploymentId"),
		)
	}

	{
		e.GET("/health/", handlers.HealthHandler())
		e.GET("/health/ready/", handlers.ReadyHandler(
			handlers.NewPinger("database", database.Ping),
			handlers.NewPinger("events", func(ctx context.Context) error {
				return eventRedis.Ping(ctx).Err()
			}),
		))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	port := fmt.Sprintf(":%d", conf.Port())
	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		e.Logger.Fatal(e.StartTLS(port, cert, key))
	} else {
		e.Logger.Fatal(e.Start(port))
	}
}
