// reconcile-balances recomputes every user's balance from the credit ledger
// and repairs any drifted points cache. Intended as a nightly job; also
// useful as a one-off after manual data surgery.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	go run ./cmd/reconcile-balances [-user-id N]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/utils"
	"github.com/greenloop-dev/greenloop_backend/workflow"
)

func main() {
	userId := flag.Int("user-id", 0, "Optional: reconcile only one user. If 0, reconciles all users.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "ReconcileBalances")

	engine := workflow.NewEngine(db, config.GetLogger())

	if *userId > 0 {
		result, err := engine.Reconcile(ctx, *userId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reconcile failed for user %d: %v\n", *userId, err)
			os.Exit(1)
		}
		if result.Drifted {
			fmt.Printf("user %d: repaired %d -> %d\n", result.UserId, result.CachedBalance, result.LedgerBalance)
		} else {
			fmt.Printf("user %d: in sync (%d)\n", result.UserId, result.LedgerBalance)
		}
		return
	}

	drifted, err := engine.ReconcileAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile sweep failed: %v\n", err)
		os.Exit(1)
	}
	for _, result := range drifted {
		fmt.Printf("user %d: repaired %d -> %d\n", result.UserId, result.CachedBalance, result.LedgerBalance)
	}
	fmt.Printf("done: %d drifted balance(s) repaired\n", len(drifted))
}
