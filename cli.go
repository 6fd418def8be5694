package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"countdown/config"
	"countdown/countdown"
	"countdown/voice"
)

const (
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130

	drainTimeout = 10 * time.Second
	// warming gets this many ticks before the countdown starts regardless
	warmTicks = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type flags struct {
	config       string
	engine       string
	rate         int
	volume       float64
	voice        string
	final        string
	announceLast int
	strict       bool
	quiet        bool
	logLevel     string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "countdown [duration_seconds]",
		Short:         "Count down and speak the final seconds",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.config)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			f.apply(cmd, cfg)

			if err := cfg.Validate(); err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			setupLogging(cfg.LogLevel)

			duration := cfg.Duration
			if len(args) == 1 {
				duration, err = parseDuration(args[0])
				if err != nil {
					return &exitError{code: exitUsage, err: err}
				}
			}
			if duration <= 0 {
				return &exitError{code: exitUsage, err: fmt.Errorf("%w; got %d", countdown.ErrInvalidDuration, duration)}
			}

			engine, cache, err := voice.NewEngine(cfg)
			if err != nil {
				if cfg.Strict {
					return &exitError{code: exitFailure, err: fmt.Errorf("failed to initialize speech; %w", err)}
				}
				logrus.WithError(err).Warnln("speech unavailable, counting down silently")
				engine = voice.Silent{}
			}
			if cache != nil {
				defer cache.Close()
			}

			state, err := run(cmd.Context(), cfg, engine, duration, cmd.OutOrStdout())
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			if state != countdown.StateCompleted {
				return &exitError{code: exitInterrupted}
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: err}
	})

	cmd.Flags().StringVar(&f.config, "config", "", "YAML config file")
	cmd.Flags().StringVar(&f.engine, "engine", "", "speech engine: system, google, elevenlabs or silent")
	cmd.Flags().IntVar(&f.rate, "rate", 0, "speech rate in words per minute")
	cmd.Flags().Float64Var(&f.volume, "volume", 0, "speech volume between 0.0 and 1.0")
	cmd.Flags().StringVar(&f.voice, "voice", "", "engine specific voice name")
	cmd.Flags().StringVar(&f.final, "final", "", "final announcement")
	cmd.Flags().IntVar(&f.announceLast, "announce-last", 0, "speak each of the last N seconds (0 = silent until the end)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail when the speech engine cannot be initialized")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "don't print the countdown")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

// apply copies explicitly set flags over the loaded config.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("engine") {
		cfg.Engine = f.engine
	}
	if set("rate") {
		cfg.Voice.Rate = f.rate
	}
	if set("volume") {
		cfg.Voice.Volume = f.volume
	}
	if set("voice") {
		cfg.Voice.Voice = f.voice
	}
	if set("final") {
		cfg.Countdown.FinalMessage = f.final
	}
	if set("announce-last") {
		cfg.Countdown.AnnounceLast = f.announceLast
	}
	if set("strict") {
		cfg.Strict = f.strict
	}
	if set("quiet") {
		cfg.Quiet = f.quiet
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

func parseDuration(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w; %q is not a whole number of seconds", countdown.ErrInvalidDuration, arg)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w; got %d", countdown.ErrInvalidDuration, n)
	}
	return n, nil
}

func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warnln("unknown log level, using warn")
		lvl = logrus.WarnLevel
	}
	logrus.SetLevel(lvl)
}

// run drives one countdown to completion or interruption and reports the
// final state.
func run(ctx context.Context, cfg *config.Config, engine voice.Engine, duration int, out io.Writer) (countdown.State, error) {
	settings := countdown.Config{
		Tick:         cfg.Countdown.Tick,
		AnnounceLast: cfg.Countdown.AnnounceLast,
		Checkpoints:  cfg.Countdown.Checkpoints,
		FinalMessage: cfg.Countdown.FinalMessage,
	}
	if settings.FinalMessage == "" {
		settings.FinalMessage = countdown.DefaultFinalMessage
	}

	warmCtx, cancelWarm := context.WithTimeout(ctx, warmTicks*settings.Tick)
	err := voice.Warm(warmCtx, engine, settings.Phrases(duration), settings.Tick)
	cancelWarm()
	if err != nil {
		logrus.WithError(err).Warnln("failed to prepare announcements")
	}

	announcer := voice.NewAnnouncer(engine, voice.AnnouncerOptions{
		MinInterval:  settings.Tick / 4,
		Burst:        2,
		FinalMessage: settings.FinalMessage,
	})
	defer announcer.Stop()

	if !cfg.Quiet {
		fmt.Fprintf(out, "Starting %d-second countdown...\n\n", duration)
	}
	report := func(remaining int) {
		if !cfg.Quiet {
			fmt.Fprintf(out, "\rCountdown: %d ", remaining)
		}
	}

	timer := countdown.New(settings, announcer)
	if err := timer.Start(ctx, duration, report, true); err != nil {
		return countdown.StateIdle, err
	}

	<-timer.Done()
	state := timer.Snapshot().State

	switch state {
	case countdown.StateCompleted:
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		defer cancel()
		if err := announcer.Drain(drainCtx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Warnln("final announcement did not finish")
		}
		if !cfg.Quiet {
			fmt.Fprintf(out, "\n\n%s\n", settings.FinalMessage)
		}
	default:
		if !cfg.Quiet {
			fmt.Fprintln(out, "\n\nCountdown interrupted by user")
		}
	}
	return state, nil
}
