package staticblog

import "embed"

// EmbeddedAssets contains client scripts shipped with every generated site.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
