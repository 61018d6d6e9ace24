package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Reconcile sources
const (
	SourceBackend = "backend"
	SourceStore   = "store"
)

func ReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Classify every contract once and sync changed statuses",
		Long: `Reconcile loads every contract, derives its lifecycle status as of today
and pushes the statuses that differ from the stored ones. Contracts come from
the REST backend when backend.api_url is set, otherwise from the local store.`,
		RunE: runReconcile,
	}
	cmd.Flags().String("source", "", "where to load contracts from (backend or store)")
	cmd.Flags().Bool("dry-run", false, "classify without syncing")
	cmd.Flags().Bool("verbose", false, "list every changed and invalid contract")
	return cmd
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, _ := cmd.Flags().GetString("source")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if source == "" {
		source = SourceStore
		if cfg.Backend.APIURL != "" {
			source = SourceBackend
		}
	}

	ctx := cmd.Context()
	var records []reconcile.Record
	var syncer reconcile.StatusSyncer

	switch source {
	case SourceBackend:
		if cfg.Backend.APIURL == "" {
			return fmt.Errorf("backend.api_url is not configured")
		}
		client := service.NewBackendClient(&cfg.Backend)
		remote, err := client.ListContracts(ctx)
		if err != nil {
			return err
		}
		records = make([]reconcile.Record, len(remote))
		for i, c := range remote {
			records[i] = c.Record()
		}
		syncer = client
	case SourceStore:
		store, err := service.NewStore(&cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()
		records, err = service.StoreSource(store.Contracts)(ctx)
		if err != nil {
			return err
		}
		syncer = service.NewStoreSyncer(store.Contracts)
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", source, SourceBackend, SourceStore)
	}

	if dryRun {
		syncer = nil
	}

	report := runBatch(ctx, syncer, &cfg.Reconcile, time.Now(), records)
	printReport(cmd.OutOrStdout(), report, verbose)
	if report.Failed > 0 {
		return fmt.Errorf("%d status syncs failed", report.Failed)
	}
	return nil
}

// batchReport is the outcome of a one-shot reconcile once every sync finished
type batchReport struct {
	Summary  reconcile.Summary
	Outcomes []reconcile.Outcome
	Synced   int
	Failed   int
}

// runBatch reconciles records with a bounded errgroup dispatcher and waits
// for every dispatched sync
func runBatch(ctx context.Context, syncer reconcile.StatusSyncer, cfg *config.ReconcileConfig, now time.Time, records []reconcile.Record) batchReport {
	var synced, failed atomic.Int64
	var counted reconcile.StatusSyncer
	if syncer != nil {
		counted = reconcile.SyncerFunc(func(ctx context.Context, id string, status lifecycle.Status) error {
			err := syncer.SyncStatus(ctx, id, status)
			if err != nil {
				failed.Add(1)
			} else {
				synced.Add(1)
			}
			return err
		})
	}

	var g errgroup.Group
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}
	dispatch := func(task func()) {
		g.Go(func() error {
			task()
			return nil
		})
	}

	rec := reconcile.New(counted,
		reconcile.WithDispatcher(dispatch),
		reconcile.WithSyncTimeout(time.Duration(cfg.SyncTimeoutSeconds)*time.Second),
	)
	outcomes := rec.Reconcile(ctx, now, records)
	_ = g.Wait()

	return batchReport{
		Summary:  reconcile.Summarize(outcomes),
		Outcomes: outcomes,
		Synced:   int(synced.Load()),
		Failed:   int(failed.Load()),
	}
}

var statusColors = map[lifecycle.Status]*color.Color{
	lifecycle.StatusPending:  color.New(color.FgCyan),
	lifecycle.StatusActive:   color.New(color.FgGreen),
	lifecycle.StatusExpiring: color.New(color.FgYellow),
	lifecycle.StatusClosed:   color.New(color.FgHiBlack),
}

func colorStatus(s lifecycle.Status, text string) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(text)
	}
	return text
}

func printReport(w io.Writer, r batchReport, verbose bool) {
	s := r.Summary
	fmt.Fprintf(w, "Contracts: %d\n", s.Total)

	statuses := make([]lifecycle.Status, 0, len(s.ByStatus))
	for status := range s.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	for _, status := range statuses {
		fmt.Fprintf(w, "  %-10s %d\n", colorStatus(status, status.Label()), s.ByStatus[status])
	}

	fmt.Fprintf(w, "Changed:   %d\n", s.Changed)
	fmt.Fprintf(w, "Synced:    %s\n", color.New(color.FgGreen).Sprint(r.Synced))
	if r.Failed > 0 {
		fmt.Fprintf(w, "Failed:    %s\n", color.New(color.FgRed).Sprint(r.Failed))
	}
	if s.Invalid > 0 {
		fmt.Fprintf(w, "Invalid:   %s\n", color.New(color.FgRed).Sprint(s.Invalid))
	}

	if !verbose {
		return
	}
	for _, out := range r.Outcomes {
		switch {
		case out.Err != nil:
			fmt.Fprintf(w, "  %s %s: %v\n", color.New(color.FgRed).Sprint("✗"), out.ID, out.Err)
		case out.Changed:
			fmt.Fprintf(w, "  %s %s: %s -> %s\n", color.New(color.FgYellow).Sprint("~"), out.ID,
				displayStored(out.Stored), colorStatus(out.Result.Status, out.Result.Label()))
		}
	}
}

func displayStored(s lifecycle.Status) string {
	if s == "" {
		return "(none)"
	}
	return s.Label()
}
