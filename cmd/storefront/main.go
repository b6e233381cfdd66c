// cmd/storefront/main.go
//
// storefront is an interactive client: one signed-in session, local prefs and
// live cart/catalog view-models on top of the same container the API uses.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sneakhead/internal/infra/config"
	"sneakhead/internal/platform/di"
	"sneakhead/internal/platform/logger"
)

func main() {
	var configFile string

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Interactive sneakhead storefront client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.Flags().StringVar(&configFile, "config", "config.yaml", "path to the yaml config file")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	// keep the prompt readable: only warnings reach the terminal
	cfg.Log.Level = "warn"
	zl, syncLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer syncLog()

	cont, err := di.NewContainer(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := cont.Close(); err != nil {
			zl.Warn("[storefront] container close", zap.Error(err))
		}
	}()

	dev, err := cont.NewDevice()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			zl.Warn("[storefront] device close", zap.Error(err))
		}
	}()

	sh := newShell(ctx, dev, out)
	if hint := dev.User.RememberedEmail(); hint != "" {
		fmt.Fprintf(out, "welcome back, %s (login %s <password>)\n", hint, hint)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			if args[0] == "quit" || args[0] == "exit" {
				return nil
			}
			if err := sh.exec(args); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
	}
}
