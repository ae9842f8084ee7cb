package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/polargraph/internal/api"
	"github.com/matzehuels/polargraph/pkg/cache"
	"github.com/matzehuels/polargraph/pkg/config"
	"github.com/matzehuels/polargraph/pkg/pipeline"
)

// serveKeyPrefix scopes server cache keys away from CLI entries that may
// share a Redis instance.
const serveKeyPrefix = "serve"

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		redisAddr string
		noCache   bool
		maxUpload int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion service",
		Long: `Serve conversions over HTTP.

  POST /v1/convert   multipart field "image"; query parameters mirror the
                     convert flags (line_spacing, amplitude_scale, organic, ...)
  GET  /v1/presets   available presets
  GET  /healthz      liveness

Artifacts are cached in Redis with --redis, otherwise in the local cache
directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("redis") && cfg.Server.Redis != "" {
				redisAddr = cfg.Server.Redis
			}

			ctx := cmd.Context()
			cc, where, err := c.serveCache(ctx, cfg, redisAddr, noCache)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(cc, cache.NewScopedKeyer(cache.NewDefaultKeyer(), serveKeyPrefix), c.Logger)
			defer runner.Close()

			printSuccess("Serving on %s", StyleLink.Render("http://"+displayAddr(addr)))
			printKeyValue("Cache", where)
			printKeyValue("Presets", fmt.Sprint(len(cfg.Presets())))

			srv := api.New(runner, cfg, c.Logger, api.WithMaxUpload(maxUpload))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", api.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the shared artifact cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Int64Var(&maxUpload, "max-upload", api.DefaultMaxUpload, "maximum upload size in bytes")

	return cmd
}

// serveCache picks Redis, the file cache or no cache, and describes the choice.
func (c *CLI) serveCache(ctx context.Context, cfg *config.Config, redisAddr string, noCache bool) (cache.Cache, string, error) {
	switch {
	case noCache:
		return cache.NewNullCache(), "disabled", nil
	case redisAddr != "":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: redisAddr, DialTimeout: 5 * time.Second})
		if err != nil {
			return nil, "", err
		}
		return rc, "redis://" + redisAddr, nil
	}
	cc, err := newCache(cfg, false)
	if err != nil {
		return nil, "", err
	}
	if fc, ok := cc.(*cache.FileCache); ok {
		return fc, fc.Dir(), nil
	}
	return cc, "disabled", nil
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
