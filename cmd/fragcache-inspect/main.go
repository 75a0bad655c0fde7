// Command fragcache-inspect prints a stored template fragment.
//
//	fragcache-inspect -c fragcache.yaml -fragment sidebar 42 en
//
// Positional arguments are the vary values, in directive order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/fragcache"
	"github.com/unkn0wn-root/fragcache/config"
	fczap "github.com/unkn0wn-root/fragcache/log/zap"
)

func main() {
	configPath := flag.String("c", "", "path to YAML configuration (environment only when empty)")
	nodename := flag.String("node", "cache", "directive name the fragment was cached under")
	fragment := flag.String("fragment", "", "fragment name")
	version := flag.String("version", "", "expected content version (with versioning)")
	backend := flag.String("backend", "", "backend name (default: configured cache_backend)")
	invalidate := flag.Bool("invalidate", false, "invalidate every variant of the fragment instead of printing it")
	verbose := flag.Bool("v", false, "log cache events")
	flag.Parse()

	if *fragment == "" {
		fmt.Fprintln(os.Stderr, "fragcache-inspect: -fragment is required")
		flag.Usage()
		os.Exit(2)
	}

	zl := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
		zl = l
	}
	defer zl.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zl.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := fragcache.With(fczap.New(zl), fragcache.Fields{"tool": "fragcache-inspect"})
	opts, err := cfg.Options(ctx, logger, nil)
	if err != nil {
		zl.Fatal("Failed to build backends", zap.Error(err))
	}
	opts.Debug = true
	c, err := fragcache.New(opts)
	if err != nil {
		zl.Fatal("Failed to create cache", zap.Error(err))
	}
	defer c.Close(context.Background())

	if *invalidate {
		if err := c.InvalidateFragment(ctx, *nodename, *fragment); err != nil {
			zl.Fatal("Failed to invalidate fragment", zap.Error(err))
		}
		fmt.Printf("invalidated %s.%s\n", *nodename, *fragment)
		return
	}

	req := fragcache.Request{Nodename: *nodename, FragmentName: *fragment, Backend: *backend}
	for _, v := range flag.Args() {
		req.VaryOn = append(req.VaryOn, v)
	}
	if *version != "" {
		req.Version = version
	}

	e, found, err := c.Peek(ctx, req)
	fmt.Printf("key:      %s\n", e.Key)
	fmt.Printf("backend:  %s\n", e.Backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("status:   absent")
		os.Exit(1)
	}
	status := "current"
	if !e.Current {
		status = "stale"
	}
	fmt.Printf("status:   %s\n", status)
	fmt.Printf("internal: %s\n", e.InternalVersion)
	if cfg.Versioning {
		fmt.Printf("version:  %s\n", e.ContentVersion)
	}
	fmt.Printf("live:     %t\n", c.Reconciler().HasLive(e.Content))
	fmt.Println()
	fmt.Println(e.Content)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
