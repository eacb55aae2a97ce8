package main

import (
	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/refresh"
)

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    refresh.NewZapLogger(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "temporal: dial %s", cfg.Temporal.HostPort)
	}
	return c, nil
}
