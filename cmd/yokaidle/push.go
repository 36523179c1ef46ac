package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/config"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/notify"
	"github.com/spf13/cobra"
)

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send or preview push notifications",
	}
	cmd.AddCommand(newPushSendCmd(), newPushPreviewCmd())
	return cmd
}

func newPushSendCmd() *cobra.Command {
	var (
		server string
		req    models.SendRequest
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Ask a running server to deliver a notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Push.Secret == "" {
				return fmt.Errorf("YOKAIDLE_PUSH_SECRET is required")
			}
			if server == "" {
				server = "http://localhost:" + cfg.Port
			}
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}
			httpReq, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, strings.TrimRight(server, "/")+"/api/push/send", bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+cfg.Push.Secret)
			resp, err := (&http.Client{Timeout: 60 * time.Second}).Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				var e models.ErrorResponse
				_ = json.NewDecoder(resp.Body).Decode(&e)
				return fmt.Errorf("push send: %d %s", resp.StatusCode, e.Error)
			}
			var out models.SendResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d/%d (failed %d, deactivated %d)\n", out.Sent, out.Total, out.Failed, out.Deactivated)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&server, "server", "", "server base URL (default http://localhost:$YOKAIDLE_PORT)")
	f.StringVar(&req.UserID, "user", "", "deliver only to this user")
	f.StringVar(&req.Title, "title", "", "notification title")
	f.StringVar(&req.Body, "body", "", "notification body")
	f.StringVar(&req.URL, "url", "", "page opened on click")
	f.StringVar(&req.Tag, "tag", "", "grouping tag")
	return cmd
}

func newPushPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview [payload]",
		Short: "Show the notification a push payload turns into",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			}
			n := notify.Receive([]byte(raw), time.Now())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(n)
		},
	}
}
