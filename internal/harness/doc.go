// Package harness runs scripted scenarios against a real engine.
//
// A scenario is a YAML file listing steps (ingest, reconcile, mark_recycled,
// patch_remote_image) and assertions on the final log:
//
//	name: repeat_scan
//	description: "Two scans of one bottle collapse into one entry"
//	timezone: UTC
//	steps:
//	  - ingest:
//	      at: 2025-03-14T09:00:00Z
//	      item: Plastic Bottle
//	      material: plastic
//	      bin: recycling
//	      recyclable: true
//	    expect:
//	      outcome: added
//	  - reconcile:
//	      - item: Plastic Bottle
//	        item_key: plastic bottle|plastic|recycling
//	        scanned_at: 2025-03-14T09:30:00Z
//	        points: 500
//	    expect:
//	      merged: 1
//	assertions:
//	  - type: entry_count
//	    count: 1
//	  - type: entry
//	    index: 0
//	    expect: { scan_count: 2, status: recycled }
//
// # Determinism
//
// Entries minted locally get sequential IDs (entry-001, entry-002...), the
// engine clock starts at the scenario's now and advances one minute per
// command, and each run uses a fresh SQLite file. After the steps the store
// is reopened and its content must match the in-memory log.
//
// # Golden snapshots
//
// RunWithGolden compares the step trace and a summary of the final log
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
