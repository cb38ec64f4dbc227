package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/ericogr/field-datalogger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	cause := stderrors.New("no such device")
	err := errors.Wrap(errors.ErrInitHardware, cause)
	require.Error(t, err)
	assert.Equal(t, "Failed to initialize hardware: no such device", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, errors.New(errors.ErrInitHardware)))
	assert.False(t, errors.Is(err, errors.New(errors.ErrInitOutput)))

	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInitHardware, code)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, errors.Wrap(errors.ErrConnect, nil))
	assert.NoError(t, errors.Wrapf(errors.ErrConnect, nil, "dial %s", "x"))
}

func TestNewf(t *testing.T) {
	err := errors.Newf(errors.ErrInvalidConfig, "unknown output type %q", "fax")
	assert.Equal(t, `unknown output type "fax"`, err.Error())
	_, ok := errors.CodeOf(stderrors.New("plain"))
	assert.False(t, ok)
}
