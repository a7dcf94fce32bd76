// Package updater refreshes the bundled exploit scripts from their upstream
// repository.
//
// Each entry of the asset table is downloaded, script assets (.mjs) are
// patched so their relative references match the local layout and their UI
// side effects are hidden, and the bytes are installed over the local copy.
// A failing entry is reported and the run moves on to the next one.
package updater
