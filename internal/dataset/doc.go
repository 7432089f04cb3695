// Package dataset holds the in-memory tabular representation that the
// detector inspects.
//
// A Dataset is an ordered list of named columns. Every column has the same
// number of cells and every cell is either null or a raw string exactly as
// the reader produced it. Nothing is trimmed or coerced on the way in, so
// checks see the data the ETL job would see.
//
// # Kinds
//
// Each non-null value is classified as one of four kinds:
//
//	numeric  parses as a finite float ("42", "-3.5", "1e3")
//	date     matches one of the known date layouts ("2024-01-15", "15/01/2024")
//	boolean  true or false in any letter case
//	text     anything else
//
// A column's kind is the majority kind among its non-null values.
//
// # Usage
//
//	ds := dataset.New("clients.xlsx", []string{"id", "email"}, [][]string{
//	    {"1", "a@b.com"},
//	    {"2", ""},
//	})
//	for _, col := range ds.Columns() {
//	    fmt.Println(col.Name, col.Kind(), col.NullCount())
//	}
//
// Datasets are read-only once built. Accessors hand out the underlying
// slices for speed; callers must not modify them.
package dataset
