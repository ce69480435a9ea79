package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/models"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"
const releaseLockKey = "lock:payout-release"
const releaseBatchSize = 50

// The payout release worker scans for scheduled payouts whose hold has
// elapsed and hands them to the transfer pipeline by marking them processing.
// A redis lock keeps multiple replicas from scanning at once; the status
// guard in MarkProcessing keeps a double scan harmless anyway.
func main() {
	port := os.Getenv("PAYOUT_RELEASE_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Health endpoint only; this service takes no application traffic.
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	interval := 30 * time.Second
	if v := os.Getenv("PAYOUT_RELEASE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go runReleaseLoop(workerCtx, logger, interval)

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func runReleaseLoop(ctx context.Context, logger *logrus.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := releaseDuePayouts(ctx, logger); err != nil {
				config.LogError(logger, "payout-release-service", "runReleaseLoop", "release due payouts", nil, err)
			}
		}
	}
}

func releaseDuePayouts(ctx context.Context, logger *logrus.Logger) error {
	locker := config.GetRedisLock()
	var lock *redislock.Lock
	if locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, releaseLockKey, time.Minute, nil)
		if err == redislock.ErrNotObtained {
			// Another replica holds the scan; nothing to do.
			return nil
		} else if err != nil {
			logger.WithFields(logrus.Fields{
				"field": "releaseDuePayouts",
			}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
			lock = nil
		}
	}
	defer func() {
		if lock != nil {
			if releaseErr := lock.Release(ctx); releaseErr != nil {
				logger.WithFields(logrus.Fields{
					"field": "releaseDuePayouts",
				}).Warn("failed to release redis lock: " + releaseErr.Error())
			}
		}
	}()

	payouts, err := models.GetReleasablePayouts(ctx, time.Now(), releaseBatchSize)
	if err != nil {
		return err
	}

	db := config.GetDB()
	for _, payout := range payouts {
		moved, err := payout.MarkProcessing(db.WithContext(ctx))
		if err != nil {
			return err
		}
		if !moved {
			continue
		}
		logger.WithFields(logrus.Fields{
			"payout_id":         payout.ID,
			"pitch_id":          payout.PitchId,
			"producer_id":       payout.ProducerId,
			"net_amount":        payout.NetAmount.StringFixed(2),
			"hold_release_date": payout.HoldReleaseDate,
		}).Info("payout moved to processing")
	}
	return nil
}
