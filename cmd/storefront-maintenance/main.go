package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/storefront"
)

var (
	dbURL             = flag.String("db-url", getEnv("STOREFRONT_POSTGRES_URL", "postgres://localhost/storefront?sslmode=disable"), "PostgreSQL connection URL")
	giftCardSchedule  = flag.String("gift-card-schedule", "15 3 * * *", "Cron schedule for gift card expiry (default: 03:15 UTC)")
	retentionSchedule = flag.String("retention-schedule", "30 3 * * 0", "Cron schedule for audit retention (default: Sunday 03:30 UTC)")
	retentionDays     = flag.Int("retention-days", 90, "Days of audit history to keep")
	runOnce           = flag.Bool("run-once", false, "Run all maintenance jobs once and exit")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	shopStore := storefront.NewStore(db)
	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize audit logger")
	}

	if *runOnce {
		expireGiftCards(log, shopStore)
		pruneAuditLogs(log, auditLogger, *retentionDays)
		log.Info("maintenance completed")
		return
	}

	c := cron.New()

	if _, err := c.AddFunc(*giftCardSchedule, func() {
		expireGiftCards(log, shopStore)
	}); err != nil {
		log.WithError(err).Fatal("failed to schedule gift card expiry")
	}

	if _, err := c.AddFunc(*retentionSchedule, func() {
		pruneAuditLogs(log, auditLogger, *retentionDays)
	}); err != nil {
		log.WithError(err).Fatal("failed to schedule audit retention")
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"gift_card_schedule": *giftCardSchedule,
		"retention_schedule": *retentionSchedule,
	}).Info("storefront maintenance started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down gracefully")

	ctx := c.Stop()
	<-ctx.Done()
	log.Info("maintenance stopped")
}

func expireGiftCards(log *logrus.Logger, store *storefront.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := store.DeactivateExpiredGiftCards(ctx)
	if err != nil {
		log.WithError(err).Error("gift card expiry failed")
		return
	}
	log.WithField("deactivated", n).Info("gift card expiry completed")
}

func pruneAuditLogs(log *logrus.Logger, logger *audit.DBLogger, days int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := logger.PruneBefore(ctx, cutoff)
	if err != nil {
		log.WithError(err).Error("audit retention failed")
		return
	}
	log.WithFields(logrus.Fields{
		"pruned": n,
		"cutoff": cutoff.Format("2006-01-02"),
	}).Info("audit retention completed")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
