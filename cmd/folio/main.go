package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/eringen/folio"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			log.Fatalf("folio: %v", err)
		}
	case "seed":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: folio seed <file.json>")
			os.Exit(1)
		}
		if err := runSeed(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg := folio.ConfigFromEnv()
	cfg.AdminPassword = folio.MustEnv("FOLIO_ADMIN_PASSWORD")
	cfg.SessionSecret = folio.MustEnv("FOLIO_SESSION_SECRET")

	app := folio.New(cfg)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Start(ctx)
}

func runSeed(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	store, err := folio.NewStore(folio.EnvOr("FOLIO_DATABASE_PATH", "data/folio.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	rep, err := folio.Seed(context.Background(), store, f)
	if ve, ok := err.(*folio.ValidationError); ok {
		fields := make([]string, 0, len(ve.Fields))
		for field := range ve.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, strings.Join(ve.Fields[field], " "))
		}
		return fmt.Errorf("%s is invalid, nothing was imported", path)
	}
	if err != nil {
		return fmt.Errorf("%w (rolled back, nothing was imported)", err)
	}

	if rep.About != "" {
		fmt.Printf("about: %s\n", rep.About)
	}
	fmt.Printf("experience: %d, skills: %d, projects: %d, posts: %d\n",
		rep.Experience, rep.Skills, rep.Projects, rep.Posts)
	for _, slug := range rep.SkippedPosts {
		fmt.Printf("skipped post %q: slug already exists\n", slug)
	}
	return nil
}

func printUsage() {
	fmt.Println(`folio - A portfolio content API built with Go and Echo

Usage:
  folio <command> [arguments]

Commands:
  serve         Start the HTTP server (configured through FOLIO_* variables)
  seed <file>   Import content from a JSON file
  version       Print the folio version
  help          Show this help message

Examples:
  FOLIO_ADMIN_PASSWORD=secret FOLIO_SESSION_SECRET=change-me folio serve
  folio seed content.json`)
}
