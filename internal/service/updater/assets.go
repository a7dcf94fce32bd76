package updater

import "strings"

// upstreamBase is where the unmodified scripts are published.
const upstreamBase = "https://raw.githubusercontent.com/kmeps4/PSFree"

// ScriptExtension marks assets that go through the patch rules.
const ScriptExtension = ".mjs"

// Asset pairs a path relative to the served root with its download URL.
type Asset struct {
	// Path is where the asset is installed, relative to the root.
	Path string
	// URL is the upstream location of the asset.
	URL string
}

// IsScript reports whether the asset is patched before being written.
func (a Asset) IsScript() bool {
	return strings.HasSuffix(strings.ToLower(a.Path), ScriptExtension)
}

// DefaultAssets returns the table refreshed by POST /update_exploit.
// chain.mjs and view.mjs are maintained locally and deliberately absent.
func DefaultAssets() []Asset {
	return []Asset{
		{Path: "psfree/lapse.mjs", URL: upstreamBase + "/refs/heads/main/lapse.mjs"},
		{Path: "psfree/psfree.mjs", URL: upstreamBase + "/refs/heads/main/psfree.mjs"},
		{Path: "psfree/config.mjs", URL: upstreamBase + "/refs/heads/main/config.mjs"},
		{Path: "psfree/send.mjs", URL: upstreamBase + "/refs/heads/main/send.mjs"},
		{Path: "psfree/kpatch/900.elf", URL: upstreamBase + "/main/kpatch/900.elf"},
		{Path: "psfree/rop/900.mjs", URL: upstreamBase + "/main/rop/900.mjs"},
		{Path: "psfree/module/constants.mjs", URL: upstreamBase + "/main/module/constants.mjs"},
		{Path: "psfree/module/int64.mjs", URL: upstreamBase + "/main/module/int64.mjs"},
		{Path: "psfree/module/mem.mjs", URL: upstreamBase + "/main/module/mem.mjs"},
		{Path: "psfree/module/memtools.mjs", URL: upstreamBase + "/main/module/memtools.mjs"},
		{Path: "psfree/module/offset.mjs", URL: upstreamBase + "/main/module/offset.mjs"},
		{Path: "psfree/module/rw.mjs", URL: upstreamBase + "/main/module/rw.mjs"},
		{Path: "psfree/module/utils.mjs", URL: upstreamBase + "/main/module/utils.mjs"},
	}
}
