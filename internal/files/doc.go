// Package files finds and removes the temporary files the service leaves
// on disk.
//
// Discovery lists the regular files of a directory. A Janitor sweeps the
// uploads and exports directories, removing files older than the
// configured retention. Uploads normally go away when their analysis or
// job finishes; the janitor catches the ones orphaned by a crash or a
// killed worker.
//
// Example usage:
//
//	janitor := files.NewJanitor(24*time.Hour, logger, paths.UploadsDir, paths.ExportsDir)
//	go janitor.Run(ctx, time.Hour)
package files
