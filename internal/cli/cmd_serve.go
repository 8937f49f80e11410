package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veggerby/ignition/internal/healthadapter"
)

func newServeCmd() *cobra.Command {
	var addr string
	var pushInterval time.Duration
	var portAttempts int

	cmd := &cobra.Command{
		Use:   "serve <config.yaml>",
		Short: "Run the configured signals once, then serve /healthz, /readyz and /ws",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := loadCoordinator(args[0])
			if err != nil {
				return err
			}
			if err := coord.RunAll(cmd.Context()); err != nil {
				return err
			}

			logger := slog.Default()
			srv := healthadapter.New(coord, logger, pushInterval)

			ln, actual, err := findAvailablePort(addr, portAttempts)
			if err != nil {
				return err
			}
			if actual != addr {
				logger.Info("requested address in use, bound alternative", "requested", addr, "actual", actual)
			}

			httpServer := &http.Server{Handler: srv.Handler()}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- httpServer.Serve(ln) }()

			logger.Info("ignition serving", "addr", actual)
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "address to listen on")
	cmd.Flags().DurationVar(&pushInterval, "push-interval", 2*time.Second, "how often to push snapshots over /ws")
	cmd.Flags().IntVar(&portAttempts, "port-attempts", 10, "number of sequential ports to try if addr is in use")
	return cmd
}

// findAvailablePort tries addr, then successive ports on the same
// host up to attempts times, grounded on internal/api/server.go's
// findAvailablePort.
func findAvailablePort(addr string, attempts int) (net.Listener, string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	basePort, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	for i := 0; i < attempts; i++ {
		candidate := net.JoinHostPort(host, strconv.Itoa(basePort+i))
		ln, err := net.Listen("tcp", candidate)
		if err == nil {
			return ln, candidate, nil
		}
	}
	return nil, "", fmt.Errorf("no available port in range %d-%d on %s", basePort, basePort+attempts-1, host)
}
