package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

var (
	app     = kingpin.New("resolvectl", "Query a running resolverd.")
	apiBase = app.Flag("api", "Base URL of the resolverd status API.").Envar("API_BASE").Default("http://localhost:8080").String()
	apiKey  = app.Flag("key", "API key sent as X-API-Key.").Envar("API_KEY").String()
	timeout = app.Flag("timeout", "Request timeout.").Default("30s").Duration()

	servicesCmd = app.Command("services", "Print every published service and its endpoints.")
	urlsCmd     = app.Command("urls", "Print the endpoints of one service, fastest first.")
	urlsName    = urlsCmd.Arg("name", "Service name.").Required().String()
	callURLsCmd = app.Command("call-urls", "Print the call-service URL list.")
	refreshCmd  = app.Command("refresh", "Run one resolution cycle now (admin key).")
)

func main() {
	app.HelpFlag.Short('h')
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch cmd {
	case servicesCmd.FullCommand():
		err = printServices(ctx, http.MethodGet, "/api/services")
	case urlsCmd.FullCommand():
		err = printService(ctx, *urlsName)
	case callURLsCmd.FullCommand():
		err = printCallURLs(ctx)
	case refreshCmd.FullCommand():
		err = printServices(ctx, http.MethodPost, "/api/refresh")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func call(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(*apiBase, "/")+path, nil)
	if err != nil {
		return err
	}
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printServices(ctx context.Context, method, path string) error {
	var m domain.ServiceConfigMap
	if err := call(ctx, method, path, &m); err != nil {
		return err
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tURL\tMS\tCERT")
	for _, name := range names {
		if len(m[name]) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\n", name)
			continue
		}
		for _, ep := range m[name] {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, ep.URL, ep.MS, ep.CertType)
		}
	}
	return tw.Flush()
}

func printService(ctx context.Context, name string) error {
	var eps []domain.ResolvedEndpoint
	if err := call(ctx, http.MethodGet, servicePath(name), &eps); err != nil {
		return err
	}
	if len(eps) == 0 {
		fmt.Printf("%s: no usable endpoints\n", name)
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tMS\tCERT")
	for _, ep := range eps {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", ep.URL, ep.MS, ep.CertType)
	}
	return tw.Flush()
}

func servicePath(name string) string {
	return "/api/services/" + url.PathEscape(name)
}

func printCallURLs(ctx context.Context) error {
	var body struct {
		ServiceURLs []string `json:"serviceUrls"`
	}
	if err := call(ctx, http.MethodGet, "/api/call-urls", &body); err != nil {
		return err
	}
	for _, u := range body.ServiceURLs {
		fmt.Println(u)
	}
	return nil
}
