package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("mailgram failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailgram",
		Short:         "Mailgram chat and admin client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := zerolog.ParseLevel(viper.GetString("log-level"))
			if err != nil {
				return errors.Wrap(err, "invalid --log-level")
			}
			logger = logger.Level(level)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://127.0.0.1:8080", "Mailgram server base URL")
	flags.String("cookie", "", "session cookie sent with every request")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	for _, name := range []string{"server", "cookie", "log-level"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}

	viper.SetEnvPrefix("MAILGRAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(newChatCommand(), newAdminCommand(), newDevserverCommand())
	return root
}
