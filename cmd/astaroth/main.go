package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labi-le/astaroth/pkg/clipboard"
	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

type action struct {
	input       bool
	watch       bool
	verbose     bool
	showVersion bool
	showHelp    bool
}

func parseFlags() (clipboard.Options, action) {
	var (
		opts clipboard.Options
		act  action
	)

	flag.BoolVarP(&act.input, "input", "i", false, "Read stdin and copy it to the clipboard")
	flag.BoolVarP(&act.watch, "watch", "w", false, "Stream clipboard changes to stdout, one per line")
	flag.BoolVar(&opts.Primary, "primary", false, "Target the PRIMARY selection (X11 only)")
	flag.DurationVarP(&opts.Timeout, "timeout", "t", clipboard.DefaultTimeout, "Deadline for one selection retrieval")
	flag.BoolVar(&act.verbose, "verbose", false, "Verbose logs")
	flag.BoolVarP(&act.showVersion, "version", "v", false, "Show version")
	flag.BoolVarP(&act.showHelp, "help", "h", false, "Show help")

	var maxSizeRaw string
	flag.StringVar(&maxSizeRaw, "max-size", "64MiB", "Maximum selection payload to accept")

	flag.Parse()

	if act.showHelp {
		return opts, act
	}

	size, err := humanize.ParseBytes(maxSizeRaw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid max-size format: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	opts.MaxSize = size

	return opts, act
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts, act := parseFlags()

	if act.showHelp {
		flag.Usage()
		return
	}

	logger := initLogger(act.verbose)

	if act.showVersion {
		logger.Info().Str("v", version).Msg("astaroth")
		return
	}

	backend := clipboard.New(logger, opts)
	logger.Debug().Str("backend", backend.Name()).Msg("selected")

	switch {
	case act.input:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read stdin")
		}
		if err := backend.SetText(ctx, string(data)); err != nil {
			logger.Fatal().Err(err).Msg("failed to set clipboard")
		}

	case act.watch:
		upd := make(chan eventful.Update)
		go func() {
			if err := backend.Watch(ctx, upd); err != nil {
				logger.Fatal().Err(err).Msg("watch failed")
			}
		}()
		for u := range upd {
			logger.Debug().Object("update", u).Msg("clipboard changed")
			fmt.Println(string(u.Data))
		}

	default:
		fmt.Print(backend.Text(ctx))
	}
}

func initLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	if verbose {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			file = short
			return fmt.Sprintf("%s:%d", file, line)
		}
		return zerolog.New(output).
			Level(zerolog.TraceLevel).
			With().
			Timestamp().
			Caller().
			Logger()
	}

	return zerolog.New(output).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()
}
