// Parses and verifies the project's dependency inputs.
//
// A project declares its direct dependencies in pyproject.toml (the
// manifest) and pins the full resolved set in uv.lock (the lockfile). The
// pipeline treats the pair as one unit: before any build container exists,
// [Verify] confirms that the lockfile covers every manifest requirement and
// that the locked set is closed under its own dependencies. A missing,
// malformed, or stale lockfile aborts the build; there is no fallback
// resolution path.
package manifest
