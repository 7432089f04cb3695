// Package suggestions renders Apache NiFi remediation hints for detected
// issues.
//
// Every issue category maps to an entry holding recommended processors with
// their properties, an example flow, a list of remedies and a Groovy script
// for the ExecuteScript processor. Property keys, property values and
// scripts are text/template sources rendered with the affected columns:
//
//	{{.Column}}   original column name
//	{{.Field}}    column name cleaned to snake_case (see CleanColumnName)
//	{{.Columns}}  all affected columns, for scripts
//
// Helper functions groovy, json and sql quote a string for the target
// language.
//
// The compact form returned by ToolConfig is what the detector stores on
// each issue; ForReport builds the full per-category material used by the
// exporters and the HTTP API.
package suggestions
