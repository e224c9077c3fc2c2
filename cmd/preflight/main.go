// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hamed0406/endpointresolver/internal/config"
)

var configFile = kingpin.Flag("config.file", "Path to the resolverd configuration file.").Default("resolver.yaml").String()

func main() {
	kingpin.Parse()

	for _, name := range []string{"BOOTSTRAP_URLS", "KNOWN_SERVICES", "PUBLIC_API_KEYS", "ADMIN_API_KEYS"} {
		if v := os.Getenv(name); strings.Contains(v, " ") {
			fmt.Fprintln(os.Stderr, "⚠", name+" contains spaces; use comma-separated with no spaces, e.g. a,b")
		}
	}

	// same loading path as resolverd: file, defaults, env
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "✖", err)
		os.Exit(1)
	}
	if !check(cfg, os.Stdout, os.Stderr) {
		os.Exit(1)
	}
}

// check prints one line per finding and reports whether cfg is deployable.
func check(cfg config.Config, out, errOut io.Writer) bool {
	passed := true
	fail := func(msg string) {
		fmt.Fprintln(errOut, "✖", msg)
		passed = false
	}
	warn := func(msg string) { fmt.Fprintln(errOut, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(out, "✔", msg) }

	if len(cfg.BootstrapURLs) == 0 {
		fail("bootstrap_urls / BOOTSTRAP_URLS is empty (no global config can ever be fetched).")
	}
	for _, u := range cfg.BootstrapURLs {
		if !isHTTPURL(u) {
			fail("bootstrap URL is not an http(s) URL: " + u)
		}
	}
	if len(cfg.BootstrapURLs) > 0 {
		ok(fmt.Sprintf("bootstrap urls: %d source(s)", len(cfg.BootstrapURLs)))
	}

	if len(cfg.KnownServices) == 0 {
		fail("known_services / KNOWN_SERVICES is empty (every resolved map would be empty).")
	} else {
		ok("known services: " + strings.Join(cfg.KnownServices, ","))
	}

	switch {
	case cfg.CallAPIURL == "":
		warn("call API URL empty; call-service URLs will not be refreshed.")
	case !isHTTPURL(cfg.CallAPIURL):
		fail("call API URL is not an http(s) URL.")
	default:
		ok("call API URL present")
	}
	if cfg.CallAPIURL != "" && !slices.Contains(cfg.KnownServices, cfg.CallServiceName) {
		warn("call service name " + cfg.CallServiceName + " is not a known service; the call manager will start empty.")
	}

	if cfg.HostPublishURL == "" {
		warn("host publish URL empty; config is only published in-process.")
	} else if !isHTTPURL(cfg.HostPublishURL) {
		fail("host publish URL is not an http(s) URL.")
	}

	switch {
	case cfg.DatabaseURL != "":
		ok("database URL present (postgres cache)")
	case cfg.RedisURL != "":
		ok("redis URL present (redis cache)")
	default:
		warn("database and redis URLs empty; cached config will not survive restarts.")
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("admin API keys empty (POST /api/refresh is open).")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("public API keys empty (read routes are open).")
	}

	if cfg.SelectThreshold >= cfg.RefreshInterval {
		warn("select threshold >= refresh interval; every cycle will reuse stale probe results.")
	}

	if passed {
		ok("preflight passed")
	}
	return passed
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
