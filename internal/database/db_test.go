package database

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestStatementsSkipsComments(t *testing.T) {
	stmts := Statements()
	assert.NotEmpty(t, stmts)
	for _, s := range stmts {
		assert.False(t, strings.HasPrefix(s, "--"), s)
		assert.NotContains(t, s, ";")
	}
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS seating_plans"))
}

func TestIsDuplicateIndex(t *testing.T) {
	assert.True(t, isDuplicateIndex(&mysql.MySQLError{Number: 1061, Message: "Duplicate key name"}))
	assert.False(t, isDuplicateIndex(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}))
	assert.True(t, isDuplicateIndex(errString("index idx_seats_hold already exists")))
}

type errString string

func (e errString) Error() string { return string(e) }
