package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, trigger := range []string{"sweep", "event", "manual"} {
		for _, status := range []string{"success", "error", "cancelled"} {
			RunsTotal.WithLabelValues(trigger, status)
		}
	}

	for _, status := range []string{"ok", "failed", "unhandled"} {
		ItemsProcessed.WithLabelValues(status)
	}

	methods := []string{"FixedSize", "FixedWidth", "FixedHeight", "Crop"}
	for _, engine := range []string{"raster", "svg"} {
		GenerationDuration.WithLabelValues(engine)
		SourceDecodeErrors.WithLabelValues(engine)
		for _, method := range methods {
			GenerationsTotal.WithLabelValues(engine, method, "success")
			GenerationsTotal.WithLabelValues(engine, method, "error")
		}
	}

	for _, status := range []string{"success", "error", "cancelled"} {
		ScansTotal.WithLabelValues(status)
	}

	for _, class := range []string{"derivative", "Added", "Modified", "Unchanged"} {
		ScanFilesClassified.WithLabelValues(class)
	}

	for _, op := range []string{"stat", "open", "readdir", "rename"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
	}

	for _, event := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatcherEventsTotal.WithLabelValues(event)
	}
}
