package util

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOffset(t *testing.T) {
	require.Equal(t, 0, Offset(1))
	require.Equal(t, 20, Offset(2))
	require.Equal(t, 0, Offset(0))
	require.Equal(t, 0, Offset(-3))
}

func TestDateRange(t *testing.T) {
	from, to, err := DateRange("2024-01-15", "2024-02-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *from)
	require.True(t, to.After(time.Date(2024, 2, 1, 23, 59, 59, 0, time.UTC)))
	require.True(t, to.Before(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)))

	from, to, err = DateRange("", "")
	require.NoError(t, err)
	require.Nil(t, from)
	require.Nil(t, to)

	_, _, err = DateRange("15-01-2024", "")
	require.Error(t, err)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "10.1.2.3, 172.16.0.1")
	require.Equal(t, "10.1.2.3", ClientIP(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.168.0.7:51234"
	require.Equal(t, "192.168.0.7", ClientIP(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "unknown")
	r.Header.Set("Proxy-Client-IP", "10.9.9.9")
	require.Equal(t, "10.9.9.9", ClientIP(r))
}
