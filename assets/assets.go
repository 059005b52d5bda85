// Package assets embeds the static files served under /assets.
package assets

import "embed"

//go:embed css/* js/*
var Assets embed.FS
