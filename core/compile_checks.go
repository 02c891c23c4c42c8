package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ AttemptRecorder     = NopAttemptRecorder{}
	_ FraudnetLoader      = NopFraudnetLoader{}
	_ WebCheckoutLauncher = UnconfiguredWebCheckoutLauncher{}
	_ MetricsRecorder     = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
