package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIsInvalidInput(t *testing.T) {
	malformed := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "ghost"`}

	assert.True(t, IsInvalidInput(malformed))
	assert.True(t, IsInvalidInput(fmt.Errorf("find comment: %w", malformed)))
	assert.False(t, IsInvalidInput(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsInvalidInput(errors.New("connection refused")))
	assert.False(t, IsInvalidInput(nil))
}

func TestMatchID(t *testing.T) {
	t.Run("uuid stays a string", func(t *testing.T) {
		id := "8d5f3c1e-2b7a-4f4e-9a61-0c1d2e3f4a5b"
		assert.Equal(t, id, MatchID(id))
	})

	t.Run("object id hex matches both forms", func(t *testing.T) {
		hex := "65f1c2a9e4b0a1b2c3d4e5f6"
		oid, err := primitive.ObjectIDFromHex(hex)
		assert.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "$in", Value: bson.A{hex, oid}}}, MatchID(hex))
	})
}

func TestIDValues(t *testing.T) {
	hex := "65f1c2a9e4b0a1b2c3d4e5f6"
	oid, _ := primitive.ObjectIDFromHex(hex)

	assert.Equal(t, bson.A{"u1", hex, oid}, IDValues([]string{"u1", hex}))
	assert.Empty(t, IDValues(nil))
}
