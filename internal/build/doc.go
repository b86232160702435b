// Package build runs the two-stage image pipeline.
//
// A build turns a project directory into a single runtime image. The
// builder stage materializes the locked dependency environment inside a
// container started from the build base image (restoring it from the
// environment cache when the inputs are unchanged) and overlays the
// application source on top. The runtime stage starts a clean container
// from the runtime base image, provisions an unprivileged account,
// imports the builder's application tree with ownership rewritten to
// that account, and exports the container as an OCI archive whose config
// drops privileges and declares the service's port and launch command.
//
// The stages execute in strict sequence; the builder's filesystem state
// is copied into the runtime stage as a tar stream, never shared. Any
// failure aborts the whole build, and the final archive is written
// atomically, so a failed build publishes nothing.
//
// Container operations are delegated to the runtime package. The
// dependency inputs are verified by the manifest package before any
// container exists.
//
// Example usage:
//
//	file, err := buildfile.Load(".")
//	if err != nil {
//	    return err
//	}
//
//	result, err := build.Run(ctx, rt, build.Options{
//	    File:      file,
//	    Output:    "dist",
//	    Platforms: []string{"linux/amd64"},
//	    Verify:    true,
//	})
//	if err != nil {
//	    return err
//	}
package build
