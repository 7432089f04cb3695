// Package http implements the HTTP handlers of the inspector web service.
// Handlers are a thin layer between the chi router and the services: they
// parse and validate input, call a service and render the result.
//
// # Handler Structure
//
// Each handler returns an error instead of writing one and is mounted
// through errors.ErrorHandler.Wrap, which turns the error into an RFC 7807
// problem document:
//
//	func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) error {
//	    report, err := h.service.GetReport(r.Context(), chi.URLParam(r, "id"))
//	    if err != nil {
//	        return err
//	    }
//	    render.JSON(w, r, report)
//	    return nil
//	}
//
// Service sentinels such as services.ErrReportNotFound are mapped to status
// codes by ErrorMappings.
//
// # Routes
//
// Every handler exposes Routes() returning a chi.Router that the
// application mounts under /api/v1. Health probes and the Prometheus
// endpoint live at the root.
//
// # Uploads
//
// Multipart uploads are limited by http.MaxBytesReader, validated by the
// file validator before touching disk and then spooled to the uploads
// directory, because the readers need a seekable file.
package http
