package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github/itish2003/vaultchat/client"
	"github/itish2003/vaultchat/config"
	"github/itish2003/vaultchat/graph"
	"github/itish2003/vaultchat/models"
	"github/itish2003/vaultchat/realtime"
)

var (
	flagServerURL string
	flagVault     string
	flagModel     string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server from the terminal",
	RunE:  runChat,
}

func init() {
	flags := chatCmd.Flags()
	flags.StringVar(&flagServerURL, "server", config.DefaultServerURL, "realtime endpoint of the server")
	flags.StringVar(&flagVault, "vault", "", "vault path on the server (prompted when empty)")
	flags.StringVar(&flagModel, "model", models.DefaultModel, "model name")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	vault := flagVault
	if vault == "" {
		var err error
		if vault, err = promptVault(ctx, in, out); err != nil {
			return err
		}
	}

	sock, err := realtime.Dial(ctx, flagServerURL, nil)
	if err != nil {
		return err
	}
	view := client.NewTerminalView(out)
	renderer := graph.NewRenderer(graph.NewTextFactory(view.GraphWriter()), graph.DefaultOptions())
	session := client.NewSession(sock, view, renderer)

	done := make(chan struct{})
	go func() {
		sock.Run(ctx)
		close(done)
	}()
	defer func() {
		sock.Close()
		<-done
	}()

	if err := session.SubmitSetup(vault, flagModel); err != nil {
		return err
	}
	select {
	case <-view.Ready():
	case msg := <-view.Failed():
		return errors.New(msg)
	case <-done:
		return realtime.ErrClosed
	case <-ctx.Done():
		return nil
	}

	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return in.Err()
		}
		line := in.Text()
		if strings.EqualFold(strings.TrimSpace(line), "exit") {
			return nil
		}
		sent, err := session.SubmitQuery(line)
		if err != nil {
			return err
		}
		if !sent {
			continue
		}
		select {
		case <-view.Idle():
		case <-done:
			return realtime.ErrClosed
		case <-ctx.Done():
			return nil
		}
	}
}

// promptVault lists the server's vaults and reads a choice.
func promptVault(ctx context.Context, in *bufio.Scanner, out io.Writer) (string, error) {
	vaults, err := fetchVaults(ctx, flagServerURL)
	if err != nil || len(vaults) == 0 {
		fmt.Fprint(out, "No vaults found in common locations. Please enter the full path to your vault: ")
		if !in.Scan() {
			return "", errors.New("no vault selected")
		}
		return strings.TrimSpace(in.Text()), nil
	}

	fmt.Fprintln(out, "Available vaults:")
	for i, v := range vaults {
		fmt.Fprintf(out, "%d. %s\n", i+1, v)
	}
	fmt.Fprint(out, "Select a vault number [1]: ")
	if !in.Scan() {
		return "", errors.New("no vault selected")
	}
	choice := strings.TrimSpace(in.Text())
	if choice == "" {
		return vaults[0], nil
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(vaults) {
		fmt.Fprint(out, "Please enter the full path to your vault: ")
		if !in.Scan() {
			return "", errors.New("no vault selected")
		}
		return strings.TrimSpace(in.Text()), nil
	}
	return vaults[n-1], nil
}

func fetchVaults(ctx context.Context, wsURL string) ([]string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/api/v1/vaults"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list vaults: status %d", resp.StatusCode)
	}
	var body models.VaultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Vaults, nil
}
