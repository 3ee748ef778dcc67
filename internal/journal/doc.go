// Persists the history of deployment runs.
//
// Every run the coordinator finishes, successful or not, is appended as an
// [Entry]. The history answers "what did the last run of this stack publish,
// and where" without touching the infrastructure backend, and is what
// `siteship status` reads.
//
// Two stores are provided. [SQLite] keeps the journal in a local file under
// the state directory and manages its schema with embedded goose migrations.
// [Postgres] shares one journal between operators and CI runners. [Open]
// picks one from a location string:
//
//	journal.Open(ctx, "off")                        // disabled, [Discard]
//	journal.Open(ctx, "postgres://ci@db/siteship")  // shared Postgres journal
//	journal.Open(ctx, "/var/lib/siteship/runs.db")  // local SQLite file
//
// Example usage:
//
//	store, err := journal.Open(ctx, cfg.JournalURL)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	entries, err := store.Recent(ctx, "dagger-pulumi-demo", "dev", 10)
package journal
