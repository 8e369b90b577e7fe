package main

import (
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pelusa-v/mailgram/internal/devserver"
)

func newDevserverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory Mailgram backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clk := clock.New()
			store, groups := devserver.NewStore(clk), devserver.NewGroups(clk)
			if seed, _ := cmd.Flags().GetBool("seed"); seed {
				devserver.Seed(store, groups, clk.Now())
			}
			srv, err := devserver.New(store, groups, devserver.WithLogger(logger), devserver.WithClock(clk))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context(), viper.GetString("addr"))
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("seed", true, "start with demo users, a group and a report")
	cobra.CheckErr(viper.BindPFlag("addr", cmd.Flags().Lookup("addr")))
	return cmd
}
