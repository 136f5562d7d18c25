package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if err := a.streamGateway.Disconnect(shutdownCtx); err != nil {
		a.logger.Error("stream-gateway-disconnect-error", zap.Error(err))
	}
	if err := a.rpcGateway.Disconnect(shutdownCtx); err != nil {
		a.logger.Error("rpc-gateway-disconnect-error", zap.Error(err))
	}

	a.opps.Close()

	if err := a.store.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.cooldown.Close()

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
