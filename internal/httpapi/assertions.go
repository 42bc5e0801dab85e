package httpapi

import (
	"github.com/acadly/tuition/internal/service/course"
	"github.com/acadly/tuition/internal/service/student"
	"github.com/acadly/tuition/internal/storage/memory"
	"github.com/acadly/tuition/internal/storage/postgres"
)

// Compile-time interface assertions for both stores against the service interfaces.
var (
	_ course.Repo    = (*memory.Store)(nil)
	_ course.Writer  = (*memory.Store)(nil)
	_ student.Repo   = (*memory.Store)(nil)
	_ student.Writer = (*memory.Store)(nil)

	_ course.Repo    = (*postgres.Store)(nil)
	_ course.Writer  = (*postgres.Store)(nil)
	_ student.Repo   = (*postgres.Store)(nil)
	_ student.Writer = (*postgres.Store)(nil)
	_ ReadyChecker   = (*postgres.Store)(nil)
)
