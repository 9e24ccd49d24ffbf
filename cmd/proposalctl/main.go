// Command proposalctl renders proposal PDFs in batch and offers an
// interactive destination search against the CRM backend.
//
//	proposalctl pdf [-out dir] [-email addr] id...
//	proposalctl search
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/delonixservices/crm/internal/adapters/assets"
	"github.com/delonixservices/crm/internal/adapters/crmapi"
	"github.com/delonixservices/crm/internal/adapters/observability"
	redisad "github.com/delonixservices/crm/internal/adapters/redis"
	"github.com/delonixservices/crm/internal/adapters/unsplash"
	"github.com/delonixservices/crm/internal/app"
	"github.com/delonixservices/crm/internal/pdf"
	"github.com/delonixservices/crm/internal/session"
	"github.com/delonixservices/crm/internal/shared"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: proposalctl pdf [-out dir] [-email addr] id...")
	fmt.Fprintln(os.Stderr, "       proposalctl search")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New()
	defer sess.Clear()
	backend, err := crmapi.New(cfg.CRMBaseURL, sess, cfg.CRMRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}
	if cfg.CRMToken != "" {
		sess.Start(cfg.CRMToken, cfg.CRMUser)
	} else if cfg.CRMUser != "" {
		tok, err := backend.Login(ctx, cfg.CRMUser, cfg.CRMPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("backend login failed")
		}
		sess.Start(tok, cfg.CRMUser)
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	switch os.Args[1] {
	case "pdf":
		fs := flag.NewFlagSet("pdf", flag.ExitOnError)
		out := fs.String("out", ".", "directory to write PDFs into")
		to := fs.String("email", "", "also e-mail each PDF to this address")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() == 0 {
			usage()
		}

		photos := app.NewCachedPhotos(unsplash.New(cfg.UnsplashBase, cfg.UnsplashKey), cache, cfg.CacheTTL)
		pipeline := pdf.NewPipeline(photos, assets.New(cfg.ImageTimeout, assets.DefaultScale, cfg.Brand.LogoPath, cfg.Brand.QRPath), pdf.Brand{
			LogoPath:     cfg.Brand.LogoPath,
			QRPath:       cfg.Brand.QRPath,
			Website:      cfg.Brand.Website,
			PaymentLines: cfg.Brand.PaymentLines,
		})
		svc := app.NewProposalService(backend, pipeline, backend, nil, photos)
		if failed := renderAll(ctx, svc, fs.Args(), *out, *to, cfg.Workers); failed > 0 {
			log.Error().Int("failed", failed).Msg("batch finished with failures")
			os.Exit(1)
		}

	case "search":
		svc := app.NewCatalogService(backend, cache, cfg.CacheTTL, cfg.Workers)
		search(ctx, svc, cfg)

	default:
		usage()
	}
}

// renderAll writes one PDF per proposal id, at most workers at a time, and
// returns how many failed.
func renderAll(ctx context.Context, svc *app.ProposalService, ids []string, dir, to string, workers int) int {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("create output dir")
	}
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	fail := func() {
		mu.Lock()
		failed++
		mu.Unlock()
	}

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("batch interrupted")
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			doc, err := svc.PDF(ctx, id)
			if err != nil {
				log.Warn().Str("id", id).Err(err).Msg("pdf failed")
				fail()
				return
			}
			path := filepath.Join(dir, doc.Filename)
			if err := os.WriteFile(path, doc.Bytes, 0o644); err != nil {
				log.Warn().Str("id", id).Err(err).Msg("write failed")
				fail()
				return
			}
			log.Info().Str("id", id).Str("file", path).Int("pages", doc.Pages).Msg("pdf ok")

			if to == "" {
				return
			}
			if err := svc.Email(ctx, id, app.EmailRequest{To: to}); err != nil {
				log.Warn().Str("id", id).Err(err).Msg("email failed")
				fail()
				return
			}
			log.Info().Str("id", id).Str("to", to).Msg("email sent")
		}(id)
	}

	wg.Wait()
	return failed
}

// search reads partial queries from stdin, one per line, and prints matching
// destinations for the last query typed within the debounce window.
func search(ctx context.Context, svc *app.CatalogService, cfg shared.Config) {
	var (
		mu      sync.Mutex
		pending string
	)
	run := func(q string) {
		cities, err := svc.SearchCities(ctx, q)
		if err != nil {
			log.Warn().Err(err).Str("q", q).Msg("search failed")
			return
		}
		fmt.Printf("%q: %d result(s)\n", q, len(cities))
		for _, c := range cities {
			fmt.Printf("  %s\t%s\n", c.CityName, c.Country)
		}
	}

	d := app.NewDebouncer(cfg.SearchDelay)
	sc := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(os.Stderr, "type a destination; Ctrl-D to quit")
	for sc.Scan() {
		q := strings.TrimSpace(sc.Text())
		mu.Lock()
		pending = q
		mu.Unlock()
		d.Trigger(func() {
			mu.Lock()
			q := pending
			pending = ""
			mu.Unlock()
			if q != "" {
				run(q)
			}
		})
	}
	// cancels the pending search and waits for a running one to print
	d.Stop()

	// flush the query that was still waiting when input ended
	mu.Lock()
	q := pending
	mu.Unlock()
	if q != "" {
		run(q)
	}
}
