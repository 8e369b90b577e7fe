package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"

	"github.com/pelusa-v/mailgram/internal/admin"
	"github.com/pelusa-v/mailgram/internal/api"
	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/render"
)

// promptConfirmer asks yes/no questions on the terminal.
type promptConfirmer struct {
	ui        *input.UI
	assumeYes bool
}

func (p promptConfirmer) Confirm(prompt string) bool {
	if p.assumeYes {
		return true
	}
	answer, err := p.ui.Ask(prompt+" [y/N]", &input.Options{
		Default:     "n",
		HideDefault: true,
		Loop:        true,
		ValidateFunc: func(s string) error {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "y", "yes", "n", "no", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		logger.Debug().Err(err).Msg("confirmation aborted")
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// fileDownloader writes exports into a directory.
type fileDownloader struct {
	dir string
	out io.Writer
}

func (d fileDownloader) Download(name string, data []byte) error {
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write export")
	}
	_, _ = fmt.Fprintln(d.out, path)
	return nil
}

type statsPrinter struct {
	out io.Writer
}

func (p statsPrinter) SetStat(name string, value int) bool {
	_, _ = fmt.Fprintf(p.out, "%-16s %d\n", name, value)
	return true
}

func newAdminController(cmd *cobra.Command) (*admin.Controller, error) {
	client, err := api.New(viper.GetString("server"), api.WithCookie(viper.GetString("cookie")), api.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	app, err := appctx.New(appctx.User{ID: "admin", Name: "admin"}, appctx.LogNotifier{Logger: logger})
	if err != nil {
		return nil, err
	}
	yes, _ := cmd.Flags().GetBool("yes")
	dir, _ := cmd.Flags().GetString("out")
	confirm := promptConfirmer{
		ui:        &input.UI{Reader: cmd.InOrStdin(), Writer: cmd.ErrOrStderr()},
		assumeYes: yes,
	}
	return admin.NewController(app, client, confirm, fileDownloader{dir: dir, out: cmd.OutOrStdout()},
		admin.WithLogger(logger),
		admin.WithStatsView(statsPrinter{out: cmd.OutOrStdout()}),
	)
}

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect and manage the admin tables",
	}
	cmd.PersistentFlags().BoolP("yes", "y", false, "answer yes to confirmations")
	cmd.PersistentFlags().String("out", ".", "directory for exported files")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print the dashboard counters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctl, err := newAdminController(cmd)
				if err != nil {
					return err
				}
				_, err = ctl.LoadStats(cmd.Context())
				return err
			},
		},
		tableCommand("show KIND", "Print a table", cobra.ExactArgs(1), nil),
		tableCommand("sort KIND COLUMN", "Print a table sorted by COLUMN", cobra.ExactArgs(2),
			func(ctl *admin.Controller, args []string) error {
				_, err := ctl.SortByColumn(args[0], args[1])
				return err
			}),
		tableCommand("search KIND TERM", "Print the rows of a table containing TERM", cobra.ExactArgs(2),
			func(ctl *admin.Controller, args []string) error {
				return ctl.FilterRows(args[0], args[1])
			}),
		&cobra.Command{
			Use:   "export KIND",
			Short: "Export a table as CSV",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctl, err := newAdminController(cmd)
				if err != nil {
					return err
				}
				if err := ctl.Open(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err = ctl.ExportTable(args[0])
				return err
			},
		},
		newBulkCommand(),
		&cobra.Command{
			Use:   "toggle-user ID",
			Short: "Activate or deactivate a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctl, err := openUsers(cmd)
				if err != nil {
					return err
				}
				return ctl.ToggleUser(cmd.Context(), args[0], userActive(ctl, args[0]))
			},
		},
		&cobra.Command{
			Use:   "delete-user ID",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctl, err := openUsers(cmd)
				if err != nil {
					return err
				}
				return ctl.DeleteUser(cmd.Context(), args[0], userCell(ctl, args[0], "name"))
			},
		},
		&cobra.Command{
			Use:   "handle-report ID ACTION",
			Short: "Mark a report as reviewed or resolved (ACTION is review or resolve)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctl, err := newAdminController(cmd)
				if err != nil {
					return err
				}
				if err := ctl.Open(cmd.Context(), "reports"); err != nil {
					return err
				}
				return ctl.HandleReport(cmd.Context(), args[0], args[1])
			},
		},
	)
	return cmd
}

// tableCommand opens KIND, applies fn, and prints the result.
func tableCommand(use, short string, args cobra.PositionalArgs, fn func(*admin.Controller, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := newAdminController(cmd)
			if err != nil {
				return err
			}
			if err := ctl.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			if fn != nil {
				if err := fn(ctl, args); err != nil {
					return err
				}
			}
			t, _ := ctl.Table(args[0])
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Table(t))
			return err
		},
	}
}

func newBulkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk ACTION [ID...]",
		Short: "Apply activate, deactivate or delete to several items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			ctl, err := newAdminController(cmd)
			if err != nil {
				return err
			}
			if err := ctl.Open(cmd.Context(), kind); err != nil {
				return err
			}
			ctl.Select(kind, true, args[1:]...)
			return ctl.DispatchBulkAction(cmd.Context(), args[0], ctl.Selected(kind))
		},
	}
	cmd.Flags().String("kind", "users", "table the ids belong to")
	return cmd
}

func openUsers(cmd *cobra.Command) (*admin.Controller, error) {
	ctl, err := newAdminController(cmd)
	if err != nil {
		return nil, err
	}
	if err := ctl.Open(cmd.Context(), "users"); err != nil {
		return nil, err
	}
	return ctl, nil
}

func userCell(ctl *admin.Controller, id, column string) string {
	t, ok := ctl.Table("users")
	if !ok {
		return id
	}
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return id
	}
	for _, r := range t.Rows {
		if r.ID == id && idx < len(r.Cells) {
			return r.Cells[idx]
		}
	}
	return id
}

func userActive(ctl *admin.Controller, id string) bool {
	return userCell(ctl, id, "status") == "active"
}
