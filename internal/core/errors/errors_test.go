package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCode(t *testing.T) {
	err := New(CodeValidationError, "bad input")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeValidationError))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
	assert.Contains(t, err.Error(), "bad input")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(cause, CodeInternal, "artifact load failed")

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestAddContext(t *testing.T) {
	err := New(CodeNotFound, "artifact missing")
	err = AddContext(err, CtxPath, "/grammars/fun.toml")
	err = AddContext(err, CtxLanguage, "fun")

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "/grammars/fun.toml", de.Context[CtxPath])
	assert.Equal(t, "fun", de.Context[CtxLanguage])
	// Context on a DomainError mutates in place, not re-wraps.
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestAddContextOnPlainError(t *testing.T) {
	err := AddContext(fmt.Errorf("plain"), CtxVersion, 3)

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, 3, de.Context[CtxVersion])
}

func TestIsCodeOnForeignError(t *testing.T) {
	assert.False(t, IsCode(fmt.Errorf("nope"), CodeInternal))
	assert.False(t, IsCode(nil, CodeInternal))
}
