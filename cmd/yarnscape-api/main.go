package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yarnscape/backend/internal/auth"
	"github.com/yarnscape/backend/internal/config"
	"github.com/yarnscape/backend/internal/database"
	"github.com/yarnscape/backend/internal/images"
	"github.com/yarnscape/backend/internal/inventory"
	"github.com/yarnscape/backend/internal/logging"
	"github.com/yarnscape/backend/internal/patterns"
	"github.com/yarnscape/backend/internal/server"
	"github.com/yarnscape/backend/internal/settings"
	"github.com/yarnscape/backend/internal/speech"
	"github.com/yarnscape/backend/internal/tracking"
	"github.com/yarnscape/backend/internal/users"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "yarnscape-api",
		Short: "YarnScape pattern companion backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("image-upload-url", defaults.GetString("images.upload_url"), "Image host upload endpoint")
	cmd.PersistentFlags().String("image-upload-preset", defaults.GetString("images.upload_preset"), "Image host unsigned upload preset")
	cmd.PersistentFlags().String("transcription-url", defaults.GetString("transcription.url"), "Speech-to-text endpoint")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "images.upload_url", "image-upload-url")
	bindFlag(cmd, "images.upload_preset", "image-upload-preset")
	bindFlag(cmd, "transcription.url", "transcription-url")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.AuthSigningSecret),
		Issuer:        appConfig.TokenIssuer,
		Audience:      appConfig.TokenAudience,
		TokenTTL:      appConfig.TokenTTL,
	})

	idProvider := patterns.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
	})
	if err != nil {
		return err
	}

	var transcriber tracking.Transcriber
	if appConfig.TranscriptionURL != "" {
		httpTranscriber, err := speech.NewHTTPTranscriber(speech.TranscriberConfig{
			Endpoint:  appConfig.TranscriptionURL,
			AuthToken: appConfig.TranscriptionToken,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		transcriber = httpTranscriber
	}

	trackingService, err := tracking.NewService(tracking.ServiceConfig{
		Database:    db,
		Clock:       time.Now,
		IDProvider:  idProvider,
		Transcriber: transcriber,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	patternsService, err := patterns.NewService(patterns.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Purger:     trackingService,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	inventoryService, err := inventory.NewService(inventory.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	settingsService, err := settings.NewService(settings.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var uploader images.Uploader
	if appConfig.ImageUploadURL != "" {
		hostedUploader, err := images.NewHostedUploader(images.HostedUploaderConfig{
			UploadURL:    appConfig.ImageUploadURL,
			UploadPreset: appConfig.ImageUploadPreset,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		uploader = hostedUploader
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:     tokenManager,
		UsersService:     usersService,
		PatternsService:  patternsService,
		TrackingService:  trackingService,
		InventoryService: inventoryService,
		SettingsService:  settingsService,
		Uploader:         uploader,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
