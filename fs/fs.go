// Package appfs exposes the files shipped inside the binary.
package appfs

import "embed"

// Layouts start with an underscore, so templates are matched file by file.
//go:embed assets/common-passwords.txt.gz assets/templates/email/*
var FS embed.FS
