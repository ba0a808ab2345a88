package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TradeAssistant/pkg/api"
	"TradeAssistant/pkg/config"
	"TradeAssistant/pkg/database"
	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/messaging"
	"TradeAssistant/pkg/metrics"
	"TradeAssistant/pkg/monitor"
	"TradeAssistant/pkg/realtime"
	"TradeAssistant/pkg/repository"
	"TradeAssistant/pkg/scheduler"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	log = log.With(logger.String("app", cfg.App.Name), logger.String("env", cfg.App.Env))
	log.Info("启动API服务...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("服务异常退出", logger.Error(err))
	}
}

// resolveConfigPath 依次使用命令行参数、CONFIG_PATH、默认路径；都不存在时只用默认值和环境变量
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if p := config.GetDefaultConfigPath(); fileExists(p) {
		return p
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	store, err := openStore(cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	hub := realtime.NewHub(
		realtime.WithWriteTimeout(cfg.Realtime.WriteTimeout),
		realtime.WithLogger(log.Component("realtime")),
		realtime.WithMetrics(rec),
	)
	defer hub.Close()

	mon := monitor.NewMonitor(func(component, status, message string) {
		log.Warn("组件状态异常",
			logger.String("component", component),
			logger.String("status", status),
			logger.String("message", message),
		)
	})
	mon.RegisterComponent("database", store.Ping)

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.NATS.URL != "" {
		client, err := messaging.NewNATSClient(ctx, cfg.NATS, log.Component("nats"))
		if err != nil {
			log.Warn("连接NATS失败，交易信号不会发布到消息流", logger.Error(err))
		} else {
			publisher = client
			mon.RegisterComponent("nats", client.Check)
		}
	}
	defer publisher.Close()

	mon.StartChecking(ctx, 30*time.Second)

	sweeper := scheduler.NewSweeper(store,
		scheduler.WithSpec(cfg.Scheduler.ExpirySpec),
		scheduler.WithTimeout(cfg.Scheduler.StoreTimeout),
		scheduler.WithLogger(log.Component("scheduler")),
		scheduler.WithMetrics(rec),
	)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	opts := []api.Option{
		api.WithPublisher(publisher),
		api.WithMonitor(mon),
		api.WithLogger(log.Component("api")),
		api.WithDefaultUser(cfg.App.DefaultUserEmail),
		api.WithStoreTimeout(cfg.API.StoreTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, api.WithMetrics(rec, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), cfg.Metrics.Path))
	} else {
		opts = append(opts, api.WithMetrics(rec, nil, ""))
	}

	handlers := api.NewHandlers(store, hub, opts...)
	server := api.NewServer(cfg.API, handlers, log.Component("http"))
	return server.Run(ctx)
}

// openStore 配置了数据库时使用 PostgreSQL，否则退回内存存储
func openStore(cfg config.DatabaseConfig, log *logger.Logger) (repository.TradeStore, error) {
	if !cfg.Enabled() {
		log.Warn("未配置数据库，使用内存存储，重启后数据丢失")
		return repository.NewMemoryStore(), nil
	}

	store, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	log.Info("数据库已连接", logger.String("host", cfg.Host), logger.String("dbname", cfg.DBName))
	return store, nil
}
