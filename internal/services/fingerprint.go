package services

import (
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"finintel/internal/core"
)

// Fingerprint identifies a dataset by content. Row order is significant since
// it decides the ending balance among same-day transactions.
func Fingerprint(ds core.Dataset) string {
	h := xxhash.New()
	writeDataset(h, ds)
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeDataset(w io.Writer, ds core.Dataset) {
	fmt.Fprintf(w, "transactions %d\n", len(ds.Transactions))
	for _, t := range ds.Transactions {
		fmt.Fprintf(w, "%s\x1f%s\x1f%q\x1f%q\x1f%s\n",
			t.Date.Format(time.RFC3339Nano), t.Amount, t.Category, t.Merchant, t.AccountBalance)
	}
	fmt.Fprintf(w, "categories %d\n", len(ds.Categories))
	for _, c := range ds.Categories {
		fmt.Fprintf(w, "%q\n", c.Name)
	}
	fmt.Fprintf(w, "targets %d\n", len(ds.Targets))
	for _, b := range ds.Targets {
		fmt.Fprintf(w, "%s\x1f%s\n", b.Month.Format(time.RFC3339Nano), b.RevenueTarget)
	}
	fmt.Fprintf(w, "rules %d\n", len(ds.Rules))
	for _, r := range ds.Rules {
		fmt.Fprintf(w, "%q\x1f%q\n", r.Merchant, string(r.RiskFlag))
	}
}
