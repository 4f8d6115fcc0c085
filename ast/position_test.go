package ast

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestPositionString(t *testing.T) {
	t.Run("WithFilename", func(t *testing.T) {
		pos := Position{Filename: "prices.bean", Line: 10, Column: 5}
		assert.Equal(t, "prices.bean:10:5", pos.String())
	})

	t.Run("WithoutFilename", func(t *testing.T) {
		pos := Position{Line: 3, Column: 1}
		assert.Equal(t, "3:1", pos.String())
	})
}
