// Package appfs embeds the static files the app needs at runtime.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
