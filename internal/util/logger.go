package util

import "go.uber.org/zap"

// NewLogger returns a JSON production logger for "production" and a human readable
// development logger for anything else.
func NewLogger(env string) *zap.SugaredLogger {
	var base *zap.Logger

	if env == "production" {
		base = zap.Must(zap.NewProduction())
	} else {
		base = zap.Must(zap.NewDevelopment())
	}

	return base.Sugar().With("app", GetAppName())
}
