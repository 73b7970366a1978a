package cli

import (
	"context"
	"fmt"
)

// runCheck runs only the reconciliation engine and prints the report.
func (a *App) runCheck(ctx context.Context) int {
	arc, err := a.buildArchive(ctx)
	if err != nil {
		a.log.Error(ctx, "check failed", "error", err)
		return ExitFailure
	}
	defer arc.Containers.Close()

	fmt.Fprint(a.stdout, arc.Report().String())
	return ExitOK
}
