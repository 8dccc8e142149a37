// Package vecsync keeps a vector store in step with a local file tree.
//
// Open a Database from a Config, then run a sync pipeline:
//
//	cfg := vecsync.DefaultConfig()
//	cfg.Root = "."
//	cfg.SupabaseURL = os.Getenv(vecsync.EnvSupabaseURL)
//	cfg.SupabaseKey = os.Getenv(vecsync.EnvSupabaseKey)
//	cfg.AI.APIKey = os.Getenv(vecsync.EnvOpenAIKey)
//
//	db, err := vecsync.Open(ctx, cfg)
//	...
//	pipeline, err := db.NewPipeline()
//	summary, err := pipeline.Run(ctx)
//
// Each run deletes records for paths that no longer exist locally and
// re-embeds every non-blank file.
package vecsync
