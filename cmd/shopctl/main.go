// shopctl drives the storefront client library against a running backend.
package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/metrics"
	"github.com/example/storefront-sync/internal/rest"
)

var (
	apiURL string
	token  string
)

// staticToken adapts the --token flag to rest.TokenSource.
type staticToken string

func (t staticToken) Token() string { return string(t) }

func newClient() *rest.Client {
	opts := []rest.Option{}
	if token != "" {
		opts = append(opts, rest.WithTokenSource(staticToken(token)))
	}
	return rest.NewClient(apiURL, opts...)
}

var (
	metricsOnce sync.Once
	metricsSet  *metrics.Set
)

// newMetrics registers the operation counters once per process; several
// subcommands build a synchronizer and a second registration would panic.
func newMetrics() *metrics.Set {
	metricsOnce.Do(func() {
		metricsSet = metrics.New(prometheus.DefaultRegisterer)
	})
	return metricsSet
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "shopctl",
		Short:        "Storefront client for the cart, review and auth services",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8081", "base URL of the storefront services")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token (from shopctl login)")

	rootCmd.AddCommand(newCartCmd())
	rootCmd.AddCommand(newReactCmd())
	rootCmd.AddCommand(newAuthCmds()...)
	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
