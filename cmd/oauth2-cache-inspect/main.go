// oauth2-cache-inspect polls a running process's cache debug endpoint and
// prints its counters: per-name, per-backend hits/misses/sets/errors/entries.
//
// The target process is expected to expose:
//   - GET /debug/oauth2-cache/snapshot - JSON payload with cache statistics.
//   - GET /debug/pprof/{heap,goroutine} - standard pprof handlers.
//
// © 2025 oauth2-cache authors. MIT License.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var version = "dev"

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.heapProfile != "" {
		if err := downloadProfile(ctx, opts.target, "heap", opts.heapProfile); err != nil {
			fatal(err)
		}
		return
	}
	if opts.goroutineProfile != "" {
		if err := downloadProfile(ctx, opts.target, "goroutine", opts.goroutineProfile); err != nil {
			fatal(err)
		}
		return
	}

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target, opts.name)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base, name string) (map[string]any, error) {
	url := base + "/debug/oauth2-cache/snapshot"
	if name != "" {
		url += "?name=" + name
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

// prettyPrint renders the per-cache entries of a snapshot. The snapshot
// is a JSON object keyed by cache name, each value holding
// backend/hits/misses/sets/errors/entries.
func prettyPrint(data map[string]any) error {
	for name, raw := range data {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("%s (backend=%v)\n", name, entry["backend"])
		fmt.Printf("  hits:    %v\n", entry["hits"])
		fmt.Printf("  misses:  %v\n", entry["misses"])
		fmt.Printf("  sets:    %v\n", entry["sets"])
		fmt.Printf("  errors:  %v\n", entry["errors"])
		fmt.Printf("  entries: %v\n", entry["entries"])
	}
	return nil
}

func downloadProfile(ctx context.Context, base, name, path string) error {
	url := fmt.Sprintf("%s/debug/pprof/%s", base, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, res.Body); err != nil {
		return err
	}
	fmt.Printf("%s profile saved to %s\n", name, path)
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "oauth2-cache-inspect:", err)
	os.Exit(1)
}
