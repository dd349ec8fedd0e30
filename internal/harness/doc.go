// Package harness runs declarative YAML conformance scenarios against the
// full room stack: store, coordinator, balance engine, settlement solver,
// and fairness explainer.
//
// A scenario declares a room, a sequence of events (including expected
// rejections), and expectations over the derived views. Run executes the
// scenario against an in-memory database and reports failures; RunWithGolden
// additionally snapshots the derived views as canonical JSON and compares
// them against a golden file, so any drift in balance math, settlement
// plans, or fairness annotations shows up as a byte diff.
//
// Golden files live in testdata/golden and are regenerated with:
//
//	go test ./internal/harness -update
package harness
