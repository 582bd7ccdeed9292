// Copyright 2020 The Prometheus Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/metalmatze/signal/internalserver"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/obs-gateway/lbac-proxy/internal/httpgateway"
	"github.com/obs-gateway/lbac-proxy/internal/metrics"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// backendFlag binds one backend service's upstream URL flag; the
// service name doubles as both the dialect lookup key and the mount
// path prefix this gateway exposes it under.
type backendFlag struct {
	service  string
	upstream string
}

func main() {
	var (
		insecureListenAddress  string
		internalListenAddress  string
		configFile             string
		configReloadInterval   time.Duration
		principalHeader        string
		principalGroupsHeader  string
		unsafePassthroughPaths string
		errorOnReplace         bool
	)

	backends := []*backendFlag{
		{service: "thanos"},
		{service: "loki"},
		{service: "tempo"},
	}

	flagset := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagset.StringVar(&insecureListenAddress, "insecure-listen-address", "", "The address the gateway's public HTTP server should listen on.")
	flagset.StringVar(&internalListenAddress, "internal-listen-address", "", "The address the internal HTTP server should listen on to expose metrics and pprof about itself.")
	flagset.StringVar(&configFile, "config-file", "", "Path to the YAML authorization configuration document. Required.")
	flagset.DurationVar(&configReloadInterval, "config-reload-interval", store.DefaultReloadInterval, "How often to check the configuration file for changes.")
	flagset.StringVar(&principalHeader, "principal-header", "X-Forwarded-User", "Name of the HTTP header carrying the authenticated caller's username.")
	flagset.StringVar(&principalGroupsHeader, "principal-groups-header", "X-Forwarded-Groups", "Name of the HTTP header carrying the authenticated caller's comma-separated groups.")
	flagset.StringVar(&unsafePassthroughPaths, "unsafe-passthrough-paths", "", "Comma delimited allow list of exact HTTP path segments forwarded without enforcement, applied to every configured backend. Use carefully.")
	flagset.BoolVar(&errorOnReplace, "error-on-replace", false, "When specified, the gateway returns HTTP 403 instead of silently rewriting a label matcher to fit the caller's constraints.")
	for _, b := range backends {
		flagset.StringVar(&b.upstream, b.service+"-upstream", "", fmt.Sprintf("The upstream URL for the %s backend. Omit to disable this backend.", b.service))
	}

	//nolint: errcheck // Parse() will exit on error.
	flagset.Parse(os.Args[1:])

	if configFile == "" {
		log.Fatalf("-config-file is required")
	}

	var passthroughPaths []string
	if unsafePassthroughPaths != "" {
		passthroughPaths = strings.Split(unsafePassthroughPaths, ",")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	st, err := store.NewStore(configFile,
		store.WithReloadInterval(configReloadInterval),
		store.WithReloadObserver(m.ObserveReload),
	)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	principals := httpgateway.HeaderPrincipalExtractor{
		UsernameHeader: principalHeader,
		GroupsHeader:   principalGroupsHeader,
	}

	topMux := http.NewServeMux()
	configured := 0
	for _, b := range backends {
		if b.upstream == "" {
			continue
		}

		upstreamURL, err := url.Parse(b.upstream)
		if err != nil {
			log.Fatalf("Failed to parse %s upstream URL: %v", b.service, err)
		}
		if upstreamURL.Scheme != "http" && upstreamURL.Scheme != "https" {
			log.Fatalf("Invalid scheme for %s upstream URL %q, only 'http' and 'https' are supported", b.service, b.upstream)
		}

		routesOpts := []httpgateway.Option{httpgateway.WithPrometheusRegistry(reg)}
		if errorOnReplace {
			routesOpts = append(routesOpts, httpgateway.WithErrorOnReplace())
		}
		if len(passthroughPaths) > 0 {
			routesOpts = append(routesOpts, httpgateway.WithPassthroughPaths(passthroughPaths))
		}

		routes, err := httpgateway.NewRoutes(b.service, upstreamURL, st, m, principals, routesOpts...)
		if err != nil {
			log.Fatalf("Failed to create routes for %s: %v", b.service, err)
		}

		prefix := "/" + b.service
		topMux.Handle(prefix+"/", http.StripPrefix(prefix, routes))
		configured++
	}

	if configured == 0 {
		log.Fatalf("at least one of -thanos-upstream, -loki-upstream, -tempo-upstream must be set")
	}

	var g run.Group
	{
		l, err := net.Listen("tcp", insecureListenAddress)
		if err != nil {
			log.Fatalf("Failed to listen on insecure address: %v", err)
		}

		srv := &http.Server{Handler: topMux}

		g.Add(func() error {
			log.Printf("Listening insecurely on %v", l.Addr())
			if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
				log.Printf("Server stopped with %v", err)
				return err
			}
			return nil
		}, func(error) {
			srv.Close()
		})
	}

	if internalListenAddress != "" {
		h := internalserver.NewHandler(
			internalserver.WithName("Internal lbac-proxy API"),
			internalserver.WithPrometheusRegistry(reg),
			internalserver.WithPProf(),
		)

		l, err := net.Listen("tcp", internalListenAddress)
		if err != nil {
			log.Fatalf("Failed to listen on internal address: %v", err)
		}

		srv := &http.Server{Handler: h}

		g.Add(func() error {
			log.Printf("Listening on %v for metrics and pprof", l.Addr())
			if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal server stopped with %v", err)
				return err
			}
			return nil
		}, func(error) {
			srv.Close()
		})
	}

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return st.Run(ctx)
		}, func(error) {
			cancel()
		})
	}

	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	if err := g.Run(); err != nil {
		if !errors.As(err, &run.SignalError{}) {
			log.Printf("Server stopped with %v", err)
			os.Exit(1)
		}
		log.Print("Caught signal; exiting gracefully...")
	}
}
