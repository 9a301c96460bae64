// Package storage manages the output directory of a scrape run.
//
// It names run files with a second-resolution timestamp
// (dice_jobs_2024-05-01_13-45-10.jsonl) and provides atomic whole-file
// writes through a temporary file and rename.
//
//	manager, err := storage.NewManager("output", "dice_jobs")
//	files := manager.NewRun()
//	err = manager.WriteAtomic(files.CSV, func(w io.Writer) error { ... })
package storage
