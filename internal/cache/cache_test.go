package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zte.szuro.net/pkg/expression"
	"zte.szuro.net/pkg/zbx"
)

func TestErrorCache(t *testing.T) {
	c, err := NewErrorCache(100)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("{a:b.last()}=1")
	require.False(t, ok)

	errs := []expression.MacroError{{Macro: "{a:b.last()}", Code: zbx.HostUnknown}}
	c.Set("{a:b.last()}=1", errs)

	got, ok := c.Get("{a:b.last()}=1")
	require.True(t, ok)
	require.Equal(t, errs, got)

	got[0].Code = zbx.FunctionUnknown
	again, _ := c.Get("{a:b.last()}=1")
	require.Equal(t, zbx.HostUnknown, again[0].Code)
}

func TestErrorCacheEmptyResult(t *testing.T) {
	c, err := NewErrorCache(10)
	require.NoError(t, err)
	defer c.Close()

	c.Set("1=1", nil)
	got, ok := c.Get("1=1")
	require.True(t, ok)
	require.Empty(t, got)
}

func TestNewErrorCacheSize(t *testing.T) {
	_, err := NewErrorCache(0)
	require.Error(t, err)
}
