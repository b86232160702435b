// Loads the per-project build configuration.
//
// A project describes its service in a slipway.yaml file at its root:
//
//	version: 1
//	service:
//	  app: app.main:app
//	  port: 8000
//	build:
//	  from: images/python-dev.tar
//	runtime:
//	  from: images/python-slim.tar
//
// Every omitted field falls back to a default chosen for a conventional
// ASGI project layout. The base image archives are the only required
// fields. Validation is structural and fail-closed; the dependency inputs
// named by the file are verified separately by the manifest package.
package buildfile
