package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/content"
	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/eventvalidate"
	"github.com/littleandi/filehorizon/internal/health"
	"github.com/littleandi/filehorizon/internal/idempotency"
	"github.com/littleandi/filehorizon/internal/idempotency/memstore"
	"github.com/littleandi/filehorizon/internal/idempotency/redisstore"
	"github.com/littleandi/filehorizon/internal/logging"
	"github.com/littleandi/filehorizon/internal/notifier"
	"github.com/littleandi/filehorizon/internal/orchestrator"
	"github.com/littleandi/filehorizon/internal/poller"
	"github.com/littleandi/filehorizon/internal/protocol"
	"github.com/littleandi/filehorizon/internal/protocol/ftpclient"
	"github.com/littleandi/filehorizon/internal/protocol/localfs"
	"github.com/littleandi/filehorizon/internal/protocol/sftpclient"
	"github.com/littleandi/filehorizon/internal/queue"
	"github.com/littleandi/filehorizon/internal/queue/memqueue"
	"github.com/littleandi/filehorizon/internal/queue/streamqueue"
	"github.com/littleandi/filehorizon/internal/reload"
	"github.com/littleandi/filehorizon/internal/router"
	"github.com/littleandi/filehorizon/internal/secrets"
	"github.com/littleandi/filehorizon/internal/sink"
	"github.com/littleandi/filehorizon/internal/sink/bussink"
	"github.com/littleandi/filehorizon/internal/sink/localsink"
	"github.com/littleandi/filehorizon/internal/sink/s3sink"
	"github.com/littleandi/filehorizon/internal/sink/sftpsink"
	"github.com/littleandi/filehorizon/internal/telemetry"
)

const drainTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline (pollers and/or workers, per Pipeline.Role)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configPath)
		},
	}
}

func runDaemon(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("run: load config: %w", err)
	}

	logger, err := logging.Build(cfg.Logging)
	if err != nil {
		return fmt.Errorf("run: build logger: %w", err)
	}
	ctx = logging.WithLogger(ctx, logger)
	log := logging.GetLogger(ctx, logging.SubsysCLI)

	ctx, stop := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stop()

	app, err := wireApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.pool.CloseAll()
	defer app.sinks.CloseAll()

	reloadWatcher := reload.NewWatcher(path, cfg, func(_ context.Context, next *config.Config) error {
		log.Warn("configuration reloaded from disk; structural changes (sources, destinations, routing) require a restart to take effect", "role", next.Pipeline.Role)
		return nil
	})
	go reloadWatcher.Run(ctx)

	healthSrv := health.New(cfg.Health, app.registry)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return healthSrv.Run(gctx) })

	switch cfg.Pipeline.Role {
	case config.RolePoller:
		group.Go(func() error { return runPoller(gctx, app) })
	case config.RoleWorker:
		group.Go(func() error { return runWorkers(gctx, cfg, app) })
	default:
		group.Go(func() error { return runPoller(gctx, app) })
		group.Go(func() error { return runWorkers(gctx, cfg, app) })
	}
	healthSrv.SetReady(true)
	log.Info("filehorizon started", "role", cfg.Pipeline.Role)

	err = group.Wait()
	healthSrv.SetReady(false)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// application is every collaborator the composition root wires
// together, handed to the poller/worker run loops.
type application struct {
	registry    *prometheus.Registry
	hooks       telemetry.Hooks
	pool        *protocol.Pool
	pollSources []poller.Source
	q           queue.Queue
	idem        idempotency.Store
	rt          *router.Router
	sinks       *sink.Registry
	notify      *notifier.Notifier
	validator   *eventvalidate.Validator
	resolver    *pooledSourceResolver
	retry       config.RetryConfig
}

func wireApp(ctx context.Context, cfg *config.Config) (*application, error) {
	log := logging.GetLogger(ctx, logging.SubsysCLI)

	registry := prometheus.NewRegistry()
	hooks := telemetry.Hooks(telemetry.NewProm(registry))

	secretResolver := buildSecretResolver(cfg.Secrets)

	pool := protocol.NewPool(5 * time.Minute)
	resolver := &pooledSourceResolver{pool: pool, keys: make(map[string]protocol.PoolKey)}

	pollSources, err := registerPollSources(ctx, cfg, pool, resolver, secretResolver)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("run: parse redis connection string: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable at startup, falling back to the in-memory queue and idempotency store", "error", err)
			redisClient = nil
		}
	}

	q, err := buildQueue(ctx, cfg, redisClient)
	if err != nil {
		return nil, err
	}

	idem := buildIdempotencyStore(cfg, redisClient)

	rt := router.New(cfg.Routing)

	sinks, notify, err := buildSinksAndNotifier(ctx, cfg, pool, resolver, secretResolver, redisClient)
	if err != nil {
		return nil, err
	}

	return &application{
		registry:    registry,
		hooks:       hooks,
		pool:        pool,
		pollSources: pollSources,
		q:           q,
		idem:        idem,
		rt:          rt,
		sinks:       sinks,
		notify:      notify,
		validator:   eventvalidate.New(),
		resolver:    resolver,
		retry:       cfg.Transfer.Retry,
	}, nil
}

func runPoller(ctx context.Context, app *application) error {
	p := poller.New(app.pollSources, app.pool, nil, app.q, app.hooks, 0, nil)
	dispatcher := poller.NewDispatcher(p)
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("run: start poller dispatcher: %w", err)
	}
	<-ctx.Done()
	dispatcher.Stop()
	return nil
}

func runWorkers(ctx context.Context, cfg *config.Config, app *application) error {
	orch := orchestrator.New(app.resolver, app.validator, app.idem, app.rt, app.sinks, app.notify, app.hooks, app.retry, cfg.Transfer.FailPipelineOnNotifyFailure)

	deliveries, err := app.q.Dequeue(ctx)
	if err != nil {
		return fmt.Errorf("run: dequeue: %w", err)
	}

	concurrency := cfg.Transfer.MaxConcurrentPerDestination
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)
	group, gctx := errgroup.WithContext(ctx)

	for {
		select {
		case <-gctx.Done():
			return drain(context.Background(), group)
		case d, ok := <-deliveries:
			if !ok {
				return drain(context.Background(), group)
			}
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return drain(context.Background(), group)
			}
			delivery := d
			group.Go(func() error {
				defer func() { <-sem }()
				orch.Process(gctx, delivery)
				return nil
			})
		}
	}
}

// drain waits, with a bounded deadline, for in-flight orchestrations
// to finish after a shutdown signal.
func drain(ctx context.Context, group *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(drainTimeout):
		return nil
	}
}

// pooledSourceResolver implements orchestrator.SourceResolver by
// looking up the PoolKey registered for the event's originating
// source name and acquiring a (possibly pooled) client for it.
type pooledSourceResolver struct {
	pool *protocol.Pool
	keys map[string]protocol.PoolKey
}

func (r *pooledSourceResolver) ResolveSource(ctx context.Context, event domain.FileEvent) (protocol.Client, error) {
	key, ok := r.keys[event.SourceName]
	if !ok {
		return nil, fmt.Errorf("run: no registered source %q", event.SourceName)
	}
	return r.pool.Acquire(ctx, key)
}

// credential is the JSON shape a CredentialSecretRef's resolved value
// is expected to carry: either a username/password pair or an SFTP
// key pair (HostKeyPEM empty disables host key pinning).
type credential struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	PrivateKeyPEM string `json:"privateKeyPem"`
	HostKeyPEM    string `json:"hostKeyPem"`
}

func resolveCredential(ctx context.Context, resolver secrets.Resolver, ref string) (credential, error) {
	value, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return credential{}, fmt.Errorf("run: resolve credential %q: %w", ref, err)
	}
	var cred credential
	if err := json.Unmarshal([]byte(value.Plain()), &cred); err != nil {
		// Not JSON: treat the whole secret as a bare password.
		return credential{Password: value.Plain()}, nil
	}
	return cred, nil
}

func buildSecretResolver(cfg config.SecretsConfig) secrets.Resolver {
	switch cfg.Resolver {
	case "file":
		return secrets.NewFileResolver(cfg.FileDir)
	default:
		return secrets.NewEnvResolver("")
	}
}

type localDialer struct{ root string }

func (d localDialer) Dial(context.Context) (protocol.Client, error) { return localfs.New(d.root), nil }

func registerPollSources(ctx context.Context, cfg *config.Config, pool *protocol.Pool, resolver *pooledSourceResolver, secretResolver secrets.Resolver) ([]poller.Source, error) {
	log := logging.GetLogger(ctx, logging.SubsysCLI)
	var sources []poller.Source

	for _, fs := range cfg.FileSources {
		if !cfg.Features.EnableLocalPoller {
			continue
		}
		key := protocol.PoolKey{Scheme: "local", CredentialFingerprint: fs.Name}
		pool.Register(key, localDialer{root: fs.Path})
		resolver.keys[fs.Name] = key
		sources = append(sources, poller.Source{
			Name:                fs.Name,
			Protocol:            domain.ProtocolLocal,
			Path:                fs.Path,
			Pattern:             fs.Pattern,
			Recursive:           fs.Recursive,
			MinStableSeconds:    time.Duration(fs.MinStableSeconds) * time.Second,
			DestinationPathHint: fs.DestinationPath,
			DeleteAfterTransfer: fs.MoveAfterProcessing,
			CronSpec:            fs.CronSpec(cfg.Polling.IntervalMilliseconds),
			PoolKey:             key,
		})
	}

	for _, rs := range cfg.RemoteFileSources {
		if rs.Protocol == "ftp" && !cfg.Features.EnableFtpPoller {
			continue
		}
		if rs.Protocol == "sftp" && !cfg.Features.EnableSftpPoller {
			continue
		}
		cred, err := resolveCredential(ctx, secretResolver, rs.CredentialSecretRef)
		if err != nil {
			log.Error("skipping remote source: credential resolution failed", "source", rs.Name, "error", err)
			continue
		}

		var dialer protocol.Dialer
		switch rs.Protocol {
		case "ftp":
			dialer = ftpclient.NewDialer(ftpclient.Config{
				Host: rs.Host, Port: rs.Port, Username: cred.Username, Password: cred.Password,
				Timeout: 30 * time.Second, Passive: true,
			})
		case "sftp":
			dialer = sftpclient.NewDialer(sftpclient.Config{
				Host: rs.Host, Port: rs.Port, Username: cred.Username, Password: cred.Password,
				PrivateKeyPEM: []byte(cred.PrivateKeyPEM), HostKeyPEM: []byte(cred.HostKeyPEM),
				Timeout: 30 * time.Second,
			})
		default:
			log.Error("skipping remote source: unknown protocol", "source", rs.Name, "protocol", rs.Protocol)
			continue
		}

		key := protocol.PoolKey{Scheme: rs.Protocol, Host: rs.Host, Port: rs.Port, CredentialFingerprint: rs.CredentialSecretRef}
		pool.Register(key, dialer)
		resolver.keys[rs.Name] = key
		sources = append(sources, poller.Source{
			Name:                rs.Name,
			Protocol:            domain.Protocol(rs.Protocol),
			Host:                rs.Host,
			Port:                rs.Port,
			Path:                rs.Path,
			Pattern:             rs.Pattern,
			Recursive:           rs.Recursive,
			MinStableSeconds:    time.Duration(rs.MinStableSeconds) * time.Second,
			DestinationPathHint: rs.DestinationPath,
			DeleteAfterTransfer: rs.MoveAfterProcessing,
			CronSpec:            rs.CronSpec(cfg.Polling.IntervalMilliseconds),
			PoolKey:             key,
		})
	}

	return sources, nil
}

func buildQueue(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (queue.Queue, error) {
	if redisClient == nil {
		return memqueue.New(), nil
	}
	q, err := streamqueue.New(ctx, redisClient, streamqueue.Config{
		StreamName:        cfg.Redis.StreamName,
		ConsumerGroup:     cfg.Redis.ConsumerGroup,
		DeadLetterStream:  cfg.Redis.DeadLetterStream,
		VisibilityTimeout: time.Duration(cfg.Redis.VisibilityTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("run: build stream queue: %w", err)
	}
	return q, nil
}

func buildIdempotencyStore(cfg *config.Config, redisClient *redis.Client) idempotency.Store {
	ttl := time.Duration(cfg.Idempotency.TtlSeconds) * time.Second
	if !cfg.Idempotency.Enabled {
		return alwaysClaimStore{}
	}
	if redisClient != nil {
		return redisstore.New(redisClient, ttl)
	}
	return memstore.New(ttl)
}

// alwaysClaimStore is used when Idempotency.Enabled is false: every
// claim succeeds, so redeliveries are reprocessed rather than
// deduplicated.
type alwaysClaimStore struct{}

func (alwaysClaimStore) Claim(context.Context, string) (bool, error) { return true, nil }
func (alwaysClaimStore) Release(context.Context, string) error       { return nil }

func buildSinksAndNotifier(ctx context.Context, cfg *config.Config, pool *protocol.Pool, resolver *pooledSourceResolver, secretResolver secrets.Resolver, redisClient *redis.Client) (*sink.Registry, *notifier.Notifier, error) {
	log := logging.GetLogger(ctx, logging.SubsysCLI)
	registry := sink.NewRegistry()
	detector := content.NewSnifferCatalogue(cfg.ContentDetection)

	var amqpConn *amqp.Connection
	var notifyPublisher bussink.Publisher

	for _, dest := range cfg.FileDestinations {
		switch dest.Type {
		case "local":
			key := protocol.PoolKey{Scheme: "local", CredentialFingerprint: "dest:" + dest.Name}
			pool.Register(key, localDialer{root: dest.Target})
			client, err := pool.Acquire(ctx, key)
			if err != nil {
				return nil, nil, fmt.Errorf("run: acquire local destination %s: %w", dest.Name, err)
			}
			registry.Register(localsink.New(dest.Name, client, dest.Target))

		case "sftp":
			cred, err := resolveCredential(ctx, secretResolver, dest.Options["credentialSecretRef"])
			if err != nil {
				return nil, nil, fmt.Errorf("run: destination %s: %w", dest.Name, err)
			}
			port := parsePort(dest.Options["port"])
			if port == 0 {
				port = 22
			}
			dialer := sftpclient.NewDialer(sftpclient.Config{
				Host: dest.Options["host"], Port: port, Username: cred.Username, Password: cred.Password,
				PrivateKeyPEM: []byte(cred.PrivateKeyPEM), HostKeyPEM: []byte(cred.HostKeyPEM),
				Timeout: 30 * time.Second,
			})
			key := protocol.PoolKey{Scheme: "sftp", Host: dest.Options["host"], Port: port, CredentialFingerprint: dest.Options["credentialSecretRef"]}
			pool.Register(key, dialer)
			client, err := pool.Acquire(ctx, key)
			if err != nil {
				return nil, nil, fmt.Errorf("run: acquire sftp destination %s: %w", dest.Name, err)
			}
			registry.Register(sftpsink.New(dest.Name, client, dest.Target))

		case "s3":
			s3Client, err := buildS3Client(ctx, dest.Options)
			if err != nil {
				return nil, nil, fmt.Errorf("run: build s3 client for %s: %w", dest.Name, err)
			}
			registry.Register(s3sink.New(dest.Name, s3Client, dest.Target))

		case "bus":
			publisher, err := buildBusPublisher(dest, redisClient, &amqpConn)
			if err != nil {
				return nil, nil, fmt.Errorf("run: build bus publisher for %s: %w", dest.Name, err)
			}
			compress := strings.EqualFold(dest.Options["compress"], "true")
			registry.Register(bussink.New(dest.Name, publisher, compress, detector))
			if dest.Name == "notifications" {
				notifyPublisher = publisher
			}

		default:
			log.Error("skipping destination: unknown type", "destination", dest.Name, "type", dest.Type)
		}
	}

	notifyDestination := ""
	if notifyPublisher != nil {
		notifyDestination = "notifications"
	}
	return registry, notifier.New(notifyPublisher, notifyDestination, true), nil
}

func parsePort(s string) uint16 {
	var port int
	fmt.Sscanf(s, "%d", &port)
	return uint16(port)
}

func buildS3Client(ctx context.Context, options map[string]string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := options["region"]; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := options["endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func buildBusPublisher(dest config.FileDestination, redisClient *redis.Client, amqpConn **amqp.Connection) (bussink.Publisher, error) {
	switch dest.Options["transport"] {
	case "amqp":
		if *amqpConn == nil {
			conn, err := amqp.Dial(dest.Options["amqpUrl"])
			if err != nil {
				return nil, fmt.Errorf("dial amqp: %w", err)
			}
			*amqpConn = conn
		}
		return bussink.NewAmqpTransport(*amqpConn, dest.Options["topicExchange"])
	default:
		if redisClient == nil {
			return nil, fmt.Errorf("bus destination %s requires redis, but redis is disabled or unreachable", dest.Name)
		}
		return bussink.NewRedisTransport(redisClient), nil
	}
}
