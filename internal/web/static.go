package web

import (
	"embed"
)

// staticFiles holds the embedded page and stylesheet.
//
//go:embed static/*
var staticFiles embed.FS
