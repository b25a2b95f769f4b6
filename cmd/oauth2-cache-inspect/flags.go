package main

// flags.go defines the options struct and flag parsing main.go uses:
// target, watch/interval, json, pprof dump paths, and version.
//
// © 2025 oauth2-cache authors. MIT License.

import (
	"flag"
	"time"
)

type options struct {
	target  string
	name    string
	watch   bool
	interval time.Duration
	json    bool

	heapProfile      string
	goroutineProfile string

	version bool
}

func parseFlags() *options {
	opts := &options{}

	flag.StringVar(&opts.target, "target", "http://127.0.0.1:8080", "base URL of the process exposing the cache debug endpoint")
	flag.StringVar(&opts.name, "name", "", "restrict the snapshot to a single named cache (empty means all)")
	flag.BoolVar(&opts.watch, "watch", false, "poll the snapshot endpoint repeatedly")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "polling interval when -watch is set")
	flag.BoolVar(&opts.json, "json", false, "print the raw JSON snapshot instead of a formatted summary")
	flag.StringVar(&opts.heapProfile, "heap-profile", "", "download a heap pprof profile to this path and exit")
	flag.StringVar(&opts.goroutineProfile, "goroutine-profile", "", "download a goroutine pprof profile to this path and exit")
	flag.BoolVar(&opts.version, "version", false, "print the inspector version and exit")

	flag.Parse()
	return opts
}
