/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gamesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swatches",
		Name:      "games_created_total",
		Help:      "Total game sessions created.",
	})

	roundsDealt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swatches",
		Name:      "rounds_dealt_total",
		Help:      "Total palettes dealt, by difficulty.",
	}, []string{"difficulty"})

	picksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swatches",
		Name:      "picks_total",
		Help:      "Total swatch picks, by outcome.",
	}, []string{"outcome"})

	activeGames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swatches",
		Name:      "active_games",
		Help:      "Game sessions currently held in memory.",
	})
)

func registerMetricsHandler(cfg *Config, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.Handler())
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", cfg.prefix+"/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", cfg.prefix+"/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", cfg.prefix+"/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", cfg.prefix+"/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", cfg.prefix+"/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
}
