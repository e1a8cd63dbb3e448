// Package services provides the business logic layer of the contract generator.
//
// This package contains the service implementations that handle:
//   - The editing session: contract type selection, field values and validation (Session)
//   - Clause list editing with stable ordering (ClauseStore)
//   - Document assembly for preview and export (Assembler)
//   - Debounced live preview rendering (PreviewService)
//   - Saving, export/import and daily backups (StorageService)
//   - Scheduled autosave and backup jobs (SchedulerService)
//   - Event publishing and subscription (EventBus)
//
// ServiceManager wires them together; the REST layer and the CLI only talk to it.
package services
