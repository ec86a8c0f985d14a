package pdfform

import (
	"github.com/rs/zerolog"

	"github.com/tsawler/pdfform/config"
	"github.com/tsawler/pdfform/engine"
	"github.com/tsawler/pdfform/internal/logging"
)

// Option configures Parse.
type Option func(*options)

type options struct {
	scale        float64
	maxFormDepth int
	eventBuffer  int

	engine engine.Engine

	log    *zerolog.Logger
	logCfg *config.LogConfig
}

// defaultOptions returns the settings of config.Default without logging.
func defaultOptions() options {
	cfg := config.Default()
	return options{
		scale:        cfg.Render.Scale,
		maxFormDepth: cfg.Render.MaxFormDepth,
		eventBuffer:  cfg.Render.EventBuffer,
	}
}

// logger returns the explicit logger, else one built from the log config,
// else a no-op logger.
func (o options) logger() zerolog.Logger {
	switch {
	case o.log != nil:
		return *o.log
	case o.logCfg != nil:
		return logging.New(*o.logCfg)
	default:
		return zerolog.Nop()
	}
}

// WithScale sets the viewport scale pages render at. Non-positive values
// are ignored.
func WithScale(scale float64) Option {
	return func(o *options) {
		if scale > 0 {
			o.scale = scale
		}
	}
}

// WithLogger sets the logger. It takes precedence over the log settings of
// WithConfig.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithEngine replaces the default document engine.
func WithEngine(e engine.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithConfig applies render and log settings from cfg. Options given after
// it override its values.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		if cfg.Render.Scale > 0 {
			o.scale = cfg.Render.Scale
		}
		if cfg.Render.MaxFormDepth > 0 {
			o.maxFormDepth = cfg.Render.MaxFormDepth
		}
		if cfg.Render.EventBuffer >= 0 {
			o.eventBuffer = cfg.Render.EventBuffer
		}
		logCfg := cfg.Log
		o.logCfg = &logCfg
	}
}
