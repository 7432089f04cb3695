// Package detector finds data-quality issues in a dataset.
//
// Seven checks are registered in a fixed order:
//
//	null_check              null and blank cells per column
//	type_consistency_check  values that disagree with the column's majority kind
//	duplicate_check         whole-row duplicates (one dataset-scoped issue at most)
//	special_char_check      characters outside letters, digits, whitespace and . , @ - _
//	whitespace_check        leading, trailing and repeated spaces
//	date_format_check       several date layouts mixed in one date column
//	column_name_check       names with spaces or symbols, or that are too long
//
// The Engine runs the enabled subset and concatenates their issues in that
// order, then in column order within each check. A check that cannot
// evaluate a column skips it; a panic or error inside one check never aborts
// the rest of the run.
//
// Basic usage:
//
//	engine := detector.NewEngine()
//	report, err := engine.Detect(ctx, ds, detector.DefaultOptions())
//
// Running a subset:
//
//	opts := detector.DefaultOptions()
//	opts.Checks = []string{detector.NullCheckName, detector.DuplicateCheckName}
//	report, err := engine.Detect(ctx, ds, opts)
//
// Detect never modifies the dataset and returns the same report for the same
// input, so results can be cached by dataset fingerprint.
package detector
