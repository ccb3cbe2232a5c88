// mdnsctl is a small command-line driver over the mdns package: it can
// enumerate service types, query a specific service, or advertise one.
//
// Usage:
//
//	mdnsctl --discovery
//	mdnsctl --query _http._tcp.local.
//	mdnsctl --service _http._tcp.local. --hostname host.local. --port 8080 --txt path=/,version=1
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jfuller/mdnsgo/internal/responder"
	"github.com/jfuller/mdnsgo/mdns"
)

func main() {
	discovery := flag.Bool("discovery", false, "enumerate advertised service types")
	query := flag.String("query", "", "query a service type, e.g. _http._tcp.local.")
	service := flag.String("service", "", "advertise a service type, e.g. _http._tcp.local.")
	hostname := flag.String("hostname", "", "hostname to advertise the service under (--service only)")
	port := flag.Int("port", 0, "port to advertise (--service only)")
	txt := flag.String("txt", "", "comma-separated key=value TXT pairs (--service only)")
	timeout := flag.Duration("timeout", time.Second, "how long to wait for responses (--discovery/--query only)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	switch {
	case *discovery:
		if err := runDiscovery(logger, *timeout); err != nil {
			logger.Error("discovery failed", "error", err)
			os.Exit(1)
		}
	case *query != "":
		if err := runQuery(logger, *query, *timeout); err != nil {
			logger.Error("query failed", "error", err)
			os.Exit(1)
		}
	case *service != "":
		if err := runService(logger, *service, *hostname, *port, *txt); err != nil {
			logger.Error("service advertisement failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "one of --discovery, --query, or --service is required")
		flag.Usage()
		os.Exit(2)
	}
}

func runDiscovery(logger *slog.Logger, timeout time.Duration) error {
	q, err := mdns.NewQuerier(mdns.WithTimeout(timeout))
	if err != nil {
		return err
	}
	defer q.Close()

	types, err := q.Discover(context.Background())
	if err != nil {
		return err
	}
	for _, t := range types {
		fmt.Println(t)
	}
	logger.Info("discovery complete", "count", len(types))
	return nil
}

func runQuery(logger *slog.Logger, serviceType string, timeout time.Duration) error {
	q, err := mdns.NewQuerier(mdns.WithTimeout(timeout))
	if err != nil {
		return err
	}
	defer q.Close()

	entries, err := q.Query(context.Background(), serviceType)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %s:%d", e.InstanceName, e.Hostname, e.Port)
		if e.IPv4 != nil {
			fmt.Printf(" ipv4=%s", e.IPv4)
		}
		if e.IPv6 != nil {
			fmt.Printf(" ipv6=%s", e.IPv6)
		}
		for k, v := range e.TXT {
			fmt.Printf(" %s=%s", k, v)
		}
		fmt.Println()
	}
	logger.Info("query complete", "service", serviceType, "count", len(entries))
	return nil
}

func runService(logger *slog.Logger, serviceType, hostname string, port int, txtFlag string) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("--port must be in [1, 65535], got %d", port)
	}
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return err
		}
		hostname = h + ".local."
	}
	if !strings.HasSuffix(hostname, ".") {
		hostname += "."
	}

	instanceName := hostname[:len(hostname)-1] + serviceType

	registry := responder.NewRegistry()
	if err := registry.Register(&responder.Service{
		InstanceName: instanceName,
		ServiceType:  serviceType,
		Hostname:     hostname,
		Port:         uint16(port),
		TXT:          parseTXT(txtFlag),
	}); err != nil {
		return err
	}

	r, err := mdns.NewResponder(registry)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("advertising service", "instance", instanceName, "hostname", hostname, "port", port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Listen(gctx)
	})
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func parseTXT(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if pair == "" {
			continue
		}
		k, v, found := strings.Cut(pair, "=")
		if !found {
			out[k] = ""
			continue
		}
		out[k] = v
	}
	return out
}
