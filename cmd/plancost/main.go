// plancost prints a pre-flight fetch plan for a list of domains: which
// subsystems are missing from stored records and what fetching them would
// cost. No provider calls are made.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mwhitford/domaincred/internal/config"
	"github.com/mwhitford/domaincred/internal/credibility"
	"github.com/mwhitford/domaincred/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	domains := flag.Args()
	if len(domains) == 0 {
		fmt.Fprintln(os.Stderr, "usage: plancost [-config path] domain [domain...]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Planning never talks to the provider, so no client source is needed.
	svc := credibility.NewService(nil, store, slog.Default())

	plan, err := svc.CreateFetchPlan(context.Background(), domains)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create fetch plan: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-30s %-8s %-10s %-6s %10s\n", "DOMAIN", "WHOIS", "BACKLINKS", "LABS", "EST. COST")
	for _, d := range plan.Domains {
		fmt.Printf("%-30s %-8s %-10s %-6s %9.2f$\n",
			d.Domain, needed(d.NeedsWhois), needed(d.NeedsBacklinks), needed(d.NeedsLabs), d.EstimatedCost)
	}
	fmt.Printf("\n%d calls across %d domains (%d already complete), estimated $%.2f\n",
		plan.TotalCalls, len(plan.Domains), plan.DomainsComplete, plan.TotalCost)
}

func needed(b bool) string {
	if b {
		return "fetch"
	}
	return "cached"
}
