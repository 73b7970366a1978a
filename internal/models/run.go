package models

// Run is one persisted migration-run record. StartedAt and FinishedAt are
// unix seconds; FinishedAt stays zero until the run ends. The totals mirror
// the run summary printed by the migrate command.
type Run struct {
	RunID         string
	StartedAt     int64
	FinishedAt    int64
	AlbumsCreated int
	ItemsUploaded int
	ItemsSkipped  int
}
