// Package appfs embeds the files the binaries need at runtime: SQL migrations and seed data.
package appfs

import "embed"

//go:embed migrations/*.sql assets/*.yaml
var FS embed.FS

// CoursesSeedPath is the default course catalog loaded by `admin seed`.
const CoursesSeedPath = "assets/courses.yaml"
