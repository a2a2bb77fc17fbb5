package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-library-api/internal/core/auth"
	"go-library-api/internal/core/config"
	"go-library-api/internal/core/database"
	"go-library-api/internal/core/logger"
	"go-library-api/internal/core/server"
	"go-library-api/internal/ledger"
	"go-library-api/internal/repo"
	"go-library-api/internal/transport/http/handler"
	"go-library-api/internal/transport/http/router"
)

// The librarian engine: catalog and user management on a separate port,
// plus the prometheus scrape endpoint.
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	store := repo.NewStore(db)
	ldg := ledger.New(store, log, ledger.Options{
		LoanPeriod: time.Duration(cfg.Loan.PeriodDays) * 24 * time.Hour,
		TopN:       cfg.Loan.StatsTopN,
	})
	books := repo.NewBookRepo(db)
	users := repo.NewUserRepo(db)

	router.Register(handler.NewBooksModule(books, store, ldg))
	router.Register(handler.NewUsersModule(users, ldg, jwter))

	r := router.NewAdminEngine(log, jwter)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 10*time.Second, 30*time.Second, 60*time.Second)

	log.Info("librarian admin starting", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("librarian admin start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("librarian admin stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
