// Package tasks runs the multi-step operations of the app with real-time progress reporting.
//
// # Core Operations
//
//  1. [FeedEngine.Load] : one page of the popular feed
//     - Fetches the page from the [services.CatalogService]
//     - Resolves every trailer key through a bounded worker pool
//     - A failed trailer lookup leaves that movie without a trailer
//
//  2. [ExportEngine.BulkExport] : write several movie lists to disk
//     - One JSON, CSV, text file or Markdown directory per list
//     - Markdown exports download posters, paced by a shared rate limiter
//     - Writes export_manifest.json summarizing every list
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default so a slow or absent reader never blocks an operation.
package tasks
