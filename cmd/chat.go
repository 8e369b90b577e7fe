package main

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pelusa-v/mailgram/internal/api"
	"github.com/pelusa-v/mailgram/internal/appctx"
	"github.com/pelusa-v/mailgram/internal/chat"
	"github.com/pelusa-v/mailgram/internal/transport"
	"github.com/pelusa-v/mailgram/internal/tui"
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat view",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
	flags := cmd.Flags()
	flags.String("user-id", "", "your user id")
	flags.String("user-name", "", "your display name")
	flags.String("peer", "", "open a private conversation with this user id")
	flags.String("group", "", "open this group conversation")
	flags.String("log-file", "", "write logs here while the chat view is open")
	cmd.MarkFlagsMutuallyExclusive("peer", "group")
	for _, name := range []string{"user-id", "user-name", "log-file"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	user := appctx.User{ID: viper.GetString("user-id"), Name: viper.GetString("user-name")}
	server := viper.GetString("server")
	cookie := viper.GetString("cookie")

	// The chat view owns the terminal, so logs go to a file or nowhere.
	log := zerolog.Nop()
	if path := viper.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		log = zerolog.New(f).With().Timestamp().Logger().Level(logger.GetLevel())
	}

	relay := &tui.Relay{}
	app, err := appctx.New(user, relay)
	if err != nil {
		return err
	}

	socketURL, err := socketURL(server, user)
	if err != nil {
		return err
	}
	header := http.Header{}
	if cookie != "" {
		header.Set("Cookie", cookie)
	}
	conn, err := transport.Dial(ctx, socketURL, header, transport.WithLogger(log))
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := api.New(server, api.WithCookie(cookie), api.WithLogger(log))
	if err != nil {
		return err
	}

	list := &chat.MemoryList{OnChange: relay.Refresh}
	ctl, err := chat.NewController(app, conn, client, list, chat.WithLogger(log), chat.WithPresence(relay))
	if err != nil {
		return err
	}
	defer ctl.Bind(conn)()

	if peer, _ := cmd.Flags().GetString("peer"); peer != "" {
		ctl.SelectPeer(peer)
	} else if group, _ := cmd.Flags().GetString("group"); group != "" {
		ctl.SelectGroup(group)
	}

	go func() {
		select {
		case <-conn.Done():
			relay.Notify(appctx.LevelError, "Disconnected: "+conn.Err().Error())
		case <-ctx.Done():
		}
	}()

	return tui.Run(ctx, ctl, list, app.User, relay)
}

// socketURL maps the server's HTTP base URL to the user's socket endpoint.
func socketURL(server string, user appctx.User) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(server), "/"))
	if err != nil || u.Host == "" {
		return "", errors.Errorf("invalid server url %q", server)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", errors.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path += "/socket/" + user.ID
	q := url.Values{}
	if user.Name != "" {
		q.Set("name", user.Name)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
