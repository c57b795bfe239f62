package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyDBError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyDBError(nil))
}

func TestClassifyDBError_NotFound(t *testing.T) {
	dbErr := ClassifyDBError(gorm.ErrRecordNotFound)
	require.NotNil(t, dbErr)
	assert.Equal(t, ErrorTypeNotFound, dbErr.Type)
	assert.True(t, IsNotFoundError(gorm.ErrRecordNotFound))
}

func TestClassifyDBError_MySQLCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     uint16
		expected DatabaseErrorType
	}{
		{"duplicate entry", 1062, ErrorTypeDuplicateKey},
		{"data too long", 1406, ErrorTypeDataTooLong},
		{"deadlock", 1213, ErrorTypeDeadlock},
		{"unmapped code", 1064, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &mysql.MySQLError{Number: tt.code, Message: tt.name}
			dbErr := ClassifyDBError(err)
			require.NotNil(t, dbErr)
			assert.Equal(t, tt.expected, dbErr.Type)
			assert.Equal(t, tt.code, dbErr.MySQLErrCode)
		})
	}
}

func TestClassifyDBError_WrappedMySQLError(t *testing.T) {
	inner := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	wrapped := fmt.Errorf("create row: %w", inner)

	dbErr := ClassifyDBError(wrapped)
	require.NotNil(t, dbErr)
	assert.Equal(t, ErrorTypeDeadlock, dbErr.Type)
	assert.True(t, IsDeadlockError(wrapped))
}

func TestClassifyDBError_ConnectionErrors(t *testing.T) {
	for _, msg := range []string{
		"dial tcp 127.0.0.1:3306: connect: connection refused",
		"read: Connection Reset by peer",
		"invalid connection: broken pipe",
	} {
		dbErr := ClassifyDBError(errors.New(msg))
		require.NotNil(t, dbErr)
		assert.Equal(t, ErrorTypeConnectionError, dbErr.Type, "message: %s", msg)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))

	assert.False(t, IsRetryable(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsRetryable(&mysql.MySQLError{Number: 1406}))
	assert.False(t, IsRetryable(nil))
}

func TestDatabaseErrorUnwrap(t *testing.T) {
	inner := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	dbErr := ClassifyDBError(inner)

	var target *mysql.MySQLError
	assert.True(t, errors.As(dbErr, &target))
	assert.Contains(t, dbErr.Error(), "1062")
}

func TestDatabaseErrorTypeString(t *testing.T) {
	assert.Equal(t, "duplicate_key", ErrorTypeDuplicateKey.String())
	assert.Equal(t, "deadlock", ErrorTypeDeadlock.String())
	assert.Equal(t, "connection_error", ErrorTypeConnectionError.String())
	assert.Equal(t, "unknown", ErrorTypeUnknown.String())
}
