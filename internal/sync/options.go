package sync

// Options holds the per-run settings shared by every transfer
type Options struct {
	Remote string // ssh destination, user@host or alias
	Delete bool   // prune remote files that no longer exist locally
	DryRun bool   // print commands instead of running them
}

// Summary counts what a run did
type Summary struct {
	Transferred int
	Skipped     int
}
