// Package cli implements the wfsctl command line.
package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mohammed-shakir/geoportal-wfs/internal/core/config"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/transport"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/wfsclient"
	"github.com/mohammed-shakir/geoportal-wfs/internal/logger"
)

// NewRootCommand builds wfsctl. Flags can also be set through WFS_* env
// vars, e.g. WFS_API_KEY or WFS_BASE_URL.
func NewRootCommand(version string) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WFS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("headers")

	root := &cobra.Command{
		Use:   "wfsctl",
		Short: "Query a geoportal WFS service",
		Long: `wfsctl lists the feature types a keyed geoportal WFS service advertises
and fetches their features as GeoJSON, with bbox and attribute filters.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("api-key", "", "geoportal API key")
	pf.String("base-url", wfsclient.DefaultBaseURL, "WFS service base URL")
	pf.StringArray("header", nil, "extra request header K=V (repeatable)")
	pf.Int("retries", 2, "retries on connection errors and 5xx responses")
	pf.Duration("timeout", 30*time.Second, "per-attempt request timeout")
	pf.StringP("output", "o", "table", "output format (table, json)")
	pf.BoolP("verbose", "v", false, "debug logging to stderr")
	for _, name := range []string{"api-key", "base-url", "retries", "timeout", "output", "verbose"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		newTypeNamesCommand(v),
		newFeaturesCommand(v),
		newFilterCommand(),
		newVersionCommand(version),
	)
	return root
}

func outputFormat(v *viper.Viper) (string, error) {
	switch o := strings.ToLower(strings.TrimSpace(v.GetString("output"))); o {
	case "table", "json":
		return o, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table or json)", o)
	}
}

func requestHeaders(cmd *cobra.Command, v *viper.Viper) (http.Header, error) {
	h := config.ParseHeaders(v.GetString("headers"))
	flags, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, kv := range flags {
		k, val, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q, want K=V", kv)
		}
		h.Add(strings.TrimSpace(k), strings.TrimSpace(val))
	}
	return h, nil
}

func newClient(cmd *cobra.Command, v *viper.Viper) (*wfsclient.Client, error) {
	apiKey := strings.TrimSpace(v.GetString("api-key"))
	if apiKey == "" {
		return nil, errors.New("an API key is required (--api-key or WFS_API_KEY)")
	}
	headers, err := requestHeaders(cmd, v)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if v.GetBool("verbose") {
		level = "debug"
	}
	zl := logger.Build(logger.Config{Level: level, Console: true, Service: "wfsctl"}, os.Stderr)
	l := logger.NewSlog(&zl)

	tr := transport.NewHTTP(l, transport.Config{
		Timeout:  v.GetDuration("timeout"),
		RetryMax: v.GetInt("retries"),
	})
	return wfsclient.New(apiKey, headers, tr,
		wfsclient.WithBaseURL(v.GetString("base-url")),
		wfsclient.WithLogger(l),
	)
}
