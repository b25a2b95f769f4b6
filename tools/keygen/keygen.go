// keygen generates realistic cache-key datasets for load-testing
// oauth2-cache outside `go test` (see bench/bench_test.go for the in-process
// benchmarks this complements). Real call sites key entries by kind - a
// session ID, an issuer's JWKS document, a provider's discovery metadata, or
// a token introspection result - so keygen emits one of those four shapes
// rather than a bare numeric key, hashed the same way internal/envelope
// hashes a plaintext key before handing it to a back-end.
//
// Usage:
//
//	go run ./tools/keygen -n 1000000 -kind=jwks -dist=zipf -seed=42 -out keys.txt
//
// Flags:
//
//	-n       number of keys to generate (default 1e6)
//	-kind    key shape: session, jwks, provider-metadata, introspection (default session)
//	-dist    access-pattern distribution: "uniform" or "zipf" (default uniform)
//	-zipfs   Zipf s parameter (>1)  (default 1.2)
//	-zipfv   Zipf v parameter (>=1) (default 1.0)
//	-seed    RNG seed (default current time)
//	-out     output file (default stdout)
//
// © 2025 oauth2-cache authors. MIT License.
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

// keyKind describes how a numeric draw from the access-pattern distribution
// is turned into a plaintext cache key, mirroring one real OIDC call site.
type keyKind struct {
	prefix  string
	entropy func(n uint64) string // builds the pre-hash plaintext for draw n
}

var keyKinds = map[string]keyKind{
	// One entry per logical end-user session.
	"session": {
		prefix:  "session",
		entropy: func(n uint64) string { return fmt.Sprintf("sess-%016x", n) },
	},
	// One entry per issuer's JWKS document, refreshed on a miss via GetOrLoad.
	"jwks": {
		prefix:  "jwks",
		entropy: func(n uint64) string { return fmt.Sprintf("https://issuer-%d.example.com/jwks.json", n%4096) },
	},
	// One entry per OIDC provider's discovery document.
	"provider-metadata": {
		prefix:  "provider-metadata",
		entropy: func(n uint64) string { return fmt.Sprintf("https://issuer-%d.example.com/.well-known/openid-configuration", n%4096) },
	},
	// One entry per introspected access/refresh token.
	"introspection": {
		prefix:  "introspection",
		entropy: func(n uint64) string { return fmt.Sprintf("tok-%016x", n) },
	},
}

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of keys to generate")
		kind    = flag.String("kind", "session", "key shape: session, jwks, provider-metadata, introspection")
		dist    = flag.String("dist", "uniform", "access-pattern distribution: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	kk, ok := keyKinds[*kind]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown kind:", *kind)
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = rnd.Uint64
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1.0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, ^uint64(0))
		gen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	for i := 0; i < *n; i++ {
		plaintext := kk.entropy(gen())
		sum := sha256.Sum256([]byte(plaintext))
		fmt.Fprintf(w, "%s:%s\n", kk.prefix, hex.EncodeToString(sum[:]))
	}
}
