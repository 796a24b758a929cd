package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelmagic/portal/internal/lifecycle"
)

func TestStatusCheckSQLListsEveryStatus(t *testing.T) {
	sql := statusCheckSQL()
	require.True(t, strings.HasPrefix(sql, "ALTER TABLE projects ADD CONSTRAINT chk_projects_status"))
	for _, s := range lifecycle.AllStatuses() {
		require.Contains(t, sql, "'"+string(s)+"'")
	}
}

func TestRegisterModels(t *testing.T) {
	require.Len(t, registerModels(), 5)
}
