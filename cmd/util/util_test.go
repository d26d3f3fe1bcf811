package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := "The address of a node. Any node answers for every key, requests for keys of other nodes are forwarded"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap, line)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(wrapped))
}

func TestSelectStack(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"json", "gob", "binary"} {
		viper.Set("serializer", name)
		s, err := GetSerializer()
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}
	viper.Set("serializer", "xml")
	_, err := GetSerializer()
	assert.Error(t, err)

	for _, name := range []string{"tcp", "unix", "http"} {
		viper.Set("transport", name)
		_, err := GetServerTransport()
		require.NoError(t, err, name)
		factory, err := GetTransportFactory()
		require.NoError(t, err, name)
		assert.NotSame(t, factory(), factory(), "every transport must be independent")
	}
	viper.Set("transport", "udp")
	_, err = GetTransport()
	assert.Error(t, err)
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("timeout", 3)
	viper.Set("transport-endpoints", "a:1,b:2")
	viper.Set("transport-read-buffer", 4)
	viper.Set("transport-tcp-linger", -1)

	conf := GetClientConfig()
	assert.Equal(t, 3, conf.TimeoutSecond)
	assert.Equal(t, []string{"a:1", "b:2"}, conf.Transport.Endpoints)
	assert.Equal(t, 4*1024, conf.Transport.SocketConf.ReadBufferSize)
	assert.Equal(t, -1, conf.Transport.TCPConf.TCPLingerSec)
}
