package database

import (
	"testing"

	modelspkg "warbler/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_ReferencedTablesFirst(t *testing.T) {
	all := PersistentModels()
	if assert.Len(t, all, 4) {
		assert.IsType(t, &modelspkg.User{}, all[0])
		assert.IsType(t, &modelspkg.Message{}, all[1])
		assert.IsType(t, &modelspkg.Follow{}, all[2])
		assert.IsType(t, &modelspkg.Like{}, all[3])
	}
}
