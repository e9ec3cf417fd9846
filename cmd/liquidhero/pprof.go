package main

import (
	"net/http"
	_ "net/http/pprof"

	"go.uber.org/zap"
)

func startPProf(addr string, logger *zap.Logger) {
	DebugPutsPersist("pprof", addr)
	go func() {
		logger.Info("initializing pprof", zap.String("addr", addr))
		logger.Warn("pprof stopped", zap.Error(http.ListenAndServe(addr, nil)))
	}()
}
