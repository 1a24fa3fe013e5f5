// covectl is the headless companion to the TUI: account, friend and
// message operations against the chat service from scripts and shells.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cove-chat/cove/internal/api"
	"github.com/cove-chat/cove/internal/config"
	"github.com/cove-chat/cove/internal/session"
)

var (
	accountFlag string
	jsonFlag    bool
)

func main() {
	root := &cobra.Command{
		Use:           "covectl",
		Short:         "Command-line client for the Cove chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&accountFlag, "account", "", "account name (overrides config default)")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")

	root.AddCommand(
		loginCmd(),
		logoutCmd(),
		meCmd(),
		searchCmd(),
		friendsCmd(),
		conversationsCmd(),
		sendCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() (*api.Client, error) {
	account := session.Resolve(accountFlag)
	if err := session.ValidateName(account); err != nil {
		return nil, err
	}
	if err := session.EnsureDir(account); err != nil {
		return nil, err
	}
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.ServerURL, session.NewTokenStore(account))
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			resp, err := client.Login(ctx, &api.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", resp.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			if err := client.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the account view: profile, friends, pending requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			me, err := client.Me(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(me)
				return nil
			}
			fmt.Printf("Username: %s\n", me.Profile.Username)
			fmt.Printf("Email:    %s\n", me.Auth.Email)
			fmt.Printf("Friends:  %d\n", len(me.Friends))
			for _, f := range me.Friends {
				fmt.Printf("  %s (%s)\n", f.Username, f.FriendID)
			}
			if len(me.IncomingRequests) > 0 {
				fmt.Printf("Incoming requests:\n")
				for _, r := range me.IncomingRequests {
					fmt.Printf("  %s (sender %s)\n", r.Username, r.SenderID)
				}
			}
			if len(me.OutgoingRequests) > 0 {
				fmt.Printf("Outgoing requests:\n")
				for _, r := range me.OutgoingRequests {
					fmt.Printf("  %s (receiver %s)\n", r.Username, r.ReceiverID)
				}
			}
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search usernames (3+ characters)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			resp, err := client.SearchUsers(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			for _, u := range resp.Usernames {
				fmt.Printf("%s (%s)\n", u.Username, u.ID)
			}
			return nil
		},
	}
}

func friendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage friends and friend requests",
	}

	type action struct {
		use, short, done string
		run              func(ctx context.Context, client *api.Client, arg string) error
	}
	actions := []action{
		{"add <username>", "Send a friend request", "Request sent", func(ctx context.Context, client *api.Client, arg string) error {
			_, err := client.SendFriendRequest(ctx, arg)
			return err
		}},
		{"accept <sender-id>", "Accept an incoming request", "Request accepted", func(ctx context.Context, client *api.Client, arg string) error {
			_, err := client.AcceptFriendRequest(ctx, arg)
			return err
		}},
		{"decline <sender-id>", "Decline an incoming request", "Request declined", func(ctx context.Context, client *api.Client, arg string) error {
			_, err := client.DeclineFriendRequest(ctx, arg)
			return err
		}},
		{"cancel <receiver-id>", "Cancel an outgoing request", "Request canceled", func(ctx context.Context, client *api.Client, arg string) error {
			_, err := client.CancelFriendRequest(ctx, arg)
			return err
		}},
		{"remove <user-id>", "Remove a friend", "Friend removed", func(ctx context.Context, client *api.Client, arg string) error {
			_, err := client.RemoveFriend(ctx, arg)
			return err
		}},
	}

	for _, a := range actions {
		a := a
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := cmdContext()
				defer cancel()

				if err := a.run(ctx, client, args[0]); err != nil {
					return err
				}
				fmt.Println(a.done)
				return nil
			},
		})
	}
	return cmd
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			resp, err := client.Conversations(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			for _, c := range resp.Conversations {
				name := c.ID
				if info, err := client.ParticipantInfo(ctx, c.ID); err == nil && info.ParticipantUsername != "" {
					name = info.ParticipantUsername
				}
				fmt.Printf("%s  %s\n", c.ID, name)
			}
			return nil
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <message...>",
		Short: "Send a message to a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext()
			defer cancel()

			content := strings.Join(args[1:], " ")
			resp, err := client.SendMessage(ctx, args[0], content)
			if err != nil {
				return err
			}
			for _, m := range resp.ResponseData {
				fmt.Printf("Sent %s\n", m.ID)
			}
			return nil
		},
	}
}
