package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/inferia-ai/inferia/cmd/loops/recurring"
	"github.com/inferia-ai/inferia/cmd/loops/tasks/outbox"
	"github.com/inferia-ai/inferia/cmd/loops/tasks/readiness"
	"github.com/inferia-ai/inferia/cmd/loops/tasks/reconcile"
	"github.com/inferia-ai/inferia/pkg/bus"
	busredis "github.com/inferia-ai/inferia/pkg/bus/redis"
	configs "github.com/inferia-ai/inferia/pkg/configs/control"
	"github.com/inferia-ai/inferia/pkg/domain"
	"github.com/inferia-ai/inferia/pkg/domain/deployment/controller"
	db "github.com/inferia-ai/inferia/pkg/domain/inferia/db"
	"github.com/inferia-ai/inferia/pkg/domain/pool/engine"
	"github.com/inferia-ai/inferia/pkg/loop"
)

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

func WithTimestamp() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetFlags(l.Flags() | log.Ldate | log.Ltime | log.Lmicroseconds)
		return l
	}
}

// Wrapper for monitoring loop tasks.
//
// Log the start and end of each time a task is executed.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X: ", counter)

		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s): %s",
				counter, time.Since(timestamp), next,
			)
		}()

		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	// Type of the loop to run
	Type domain.LoopType

	// Policy for the looping
	Policy recurring.Policy
}

// StartLoop runs the loop named by manifest.Type until its policy or
// the context stops it.
func StartLoop(
	ctx context.Context,
	logger *log.Logger,
	database db.InferiaDatabase,
	eventRedis *goredis.Client,
	conf *configs.ControlConfig,
	eng engine.Engine,
	manifest LoopManifest,
) error {
	switch manifest.Type {
	case domain.Outbox:
		eventBus := busredis.NewBus(eventRedis, conf.Events().Stream())
		return StartOutboxLoop(ctx, logger, database, eventBus, manifest)
	case domain.Reconcile:
		consumer, err := busredis.NewConsumer(
			ctx, eventRedis, conf.Events().Stream(), "reconciler", consumerName(),
		)
		if err != nil {
			return err
		}
		defer consumer.Close()
		return StartReconcileLoop(ctx, logger, database, consumer, eng, conf.Worker(), manifest)
	case domain.Readiness:
		return StartReadinessLoop(ctx, logger, database, conf.Worker(), manifest)
	default:
		return fmt.Errorf(`%w: "%s"`, domain.ErrUnknownLoopType, manifest.Type)
	}
}

// consumerName identifies this process within the reconciler group, so
// pending events stick to the instance which first read them.
func consumerName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fmt.Sprintf("reconciler-%d", os.Getpid())
}

// Start outbox loop: relay committed events to the stream.
func StartOutboxLoop(
	ctx context.Context,
	logger *log.Logger,
	database db.InferiaDatabase,
	eventBus bus.Bus,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[outbox loop]"))
	_, err := loop.Start(
		ctx, outbox.Seed(),
		monitor(
			l,
			outbox.Task(database.Outbox(), eventBus).Applied(manifest.Policy),
		),
	)
	return err
}

// Start reconcile loop: drive deployments through their lifecycle in
// reaction to stream events.
func StartReconcileLoop(
	ctx context.Context,
	logger *log.Logger,
	database db.InferiaDatabase,
	consumer bus.Consumer,
	eng engine.Engine,
	worker *configs.WorkerConfig,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[reconcile loop]"))

	ctrl := controller.New(
		database.Deployment(), database.Registry(), database.Gateway(), l,
	)

	conf := reconcile.DefaultConfig()
	conf.MaxAttempts = worker.MaxAttempts()
	conf.RetryBackoff = worker.RetryBackoff()

	_, err := loop.Start(
		ctx, reconcile.Seed(),
		monitor(
			l,
			reconcile.Task(
				l,
				consumer,
				database.Deployment(),
				database.Pool(),
				database.Registry(),
				ctrl,
				eng,
				conf,
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(30*time.Second),
	)
	return err
}

// Start readiness loop: probe running deployments and promote the
// answering ones.
func StartReadinessLoop(
	ctx context.Context,
	logger *log.Logger,
	database db.InferiaDatabase,
	worker *configs.WorkerConfig,
	manifest LoopManifest,
) error {
	l := byLogger(logger, Copied(), WithPrefix("[readiness loop]"))

	ctrl := controller.New(
		database.Deployment(), database.Registry(), database.Gateway(), l,
	)

	_, err := loop.Start(
		ctx, readiness.Seed(),
		monitor(
			l,
			readiness.Task(
				l,
				database.Deployment(),
				ctrl,
				http.DefaultClient,
				readiness.Config{
					ProbePath:    worker.ProbePath(),
					ProbeTimeout: worker.ProbeTimeout(),
				},
			).Applied(manifest.Policy),
		),
	)
	return err
}
