package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "file", ResourceOf("create_file"))
	assert.Equal(t, "role", ResourceOf("manage_role"))
	assert.Equal(t, "", ResourceOf("bogus"))
}

func TestManageCodeFor(t *testing.T) {
	assert.Equal(t, "manage_file", ManageCodeFor("delete_file"))
	assert.Equal(t, "manage_user", ManageCodeFor("manage_user"))
	assert.Equal(t, "", ManageCodeFor("nounderscore"))
}
