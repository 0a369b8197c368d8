package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	commonmw "codearena/internal/common/http/middleware"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/judge/controller"
	"codearena/internal/judge/repository"
	"codearena/internal/judge/service"
	"codearena/internal/sandbox/process"
	"codearena/internal/sandbox/remote"
	"codearena/internal/sandbox/vm"
	"codearena/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/exec_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQL(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCache(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka)
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mqClient.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	var procOpts []process.Option
	if len(appCfg.Sandbox.Languages) > 0 {
		procOpts = append(procOpts, process.WithSpecs(appCfg.Sandbox.Languages))
	}
	procRunner := process.NewRunner(appCfg.Sandbox.TempRoot, procOpts...)

	vmRunner := vm.NewRunner(appCfg.VM)
	defer func() {
		_ = vmRunner.Close()
	}()

	var remoteClient *remote.Client
	if appCfg.Remote.BaseURL != "" && appCfg.Remote.ClientID != "" {
		remoteClient = remote.NewClient(appCfg.Remote, nil)
	}

	selector := service.NewSelector(procRunner, remoteClient, vmRunner)

	problemRepo := repository.NewProblemRepository(mysqlDB.DB(), redisCache, objStorage, appCfg.Exec.TestDataBucket)
	submissionRepo := repository.NewSubmissionRepository(mysqlDB.DB())
	statusRepo := repository.NewStatusRepository(redisCache)
	statusPublisher := repository.NewMQStatusEventPublisher(mqClient, appCfg.Exec.StatusTopic)

	judgeService := service.NewJudgeService(appCfg.Judge, problemRepo, submissionRepo, statusRepo, statusPublisher, selector)
	submissionService := service.NewSubmissionService(
		appCfg.Judge.MaxCodeBytes,
		appCfg.Exec.SubmissionTopic,
		mqClient,
		submissionRepo,
		statusRepo,
		selector,
	)

	if err := mqClient.Subscribe(context.Background(), appCfg.Exec.SubmissionTopic, judgeService.HandleMessage); err != nil {
		logger.Error(context.Background(), "subscribe submission topic failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, submissionService)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "exec http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	_ = mqClient.Stop()
}

func buildHTTPServer(cfg ServerConfig, submissionService *service.SubmissionService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	execController := controller.NewExecController(submissionService)

	api := router.Group("/api/v1")
	api.POST("/execute", execController.Execute)
	api.POST("/submissions", execController.Submit)
	api.GET("/submissions/:id", execController.GetStatus)
	api.GET("/languages", execController.Languages)
	router.GET("/healthz", execController.Health)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
