package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/inferia-ai/inferia/cmd/loops/recurring"
	configs "github.com/inferia-ai/inferia/pkg/configs/control"
	"github.com/inferia-ai/inferia/pkg/conn/providers"
	"github.com/inferia-ai/inferia/pkg/domain"
	kpg "github.com/inferia-ai/inferia/pkg/domain/inferia/db/postgres"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/utils/args"
	"github.com/inferia-ai/inferia/pkg/utils/filewatch"
	"github.com/inferia-ai/inferia/pkg/utils/try"
)

func main() {
	logger := log.Default()
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("INFERIA_CONTROL_CONFIG"), "path to config file",
	)
	//-- which loop type to run
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type: outbox, reconcile, readiness")
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	// parse command line flags
	flag.Parse()

	{
		// watch config
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadControlConfig(*pconfig)).OrFatal(logger)

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

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), policy.Value().String(),
	)

	err := StartLoop(
		ctx, logger, database, eventRedis, conf, eng,
		LoopManifest{
			Type:   loopType.Value(),
			Policy: recurring.UntilError(policy.Value()),
		},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}

	if ctx.Err() != nil {
		logger.Fatal(err)
	}
}
